package alerts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courier/internal/config"
)

const userAgent = "Courier/0.1.0"

// Service defines the alerting surface exposed to pipeline components.
type Service interface {
	MissingReports(ctx context.Context, departments []string) error
	RunFailed(ctx context.Context, kind, detail string) error
	Test(ctx context.Context) error
}

// NewService builds an alert service backed by ntfy when configured. When no
// topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Alerts.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Alerts.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: endpointFor(cfg.Alerts.NtfyServer, topic),
		client:   &http.Client{Timeout: timeout},
	}
}

// endpointFor joins server and topic; a topic that is already a full URL is
// used verbatim.
func endpointFor(server, topic string) string {
	if strings.Contains(topic, "://") {
		return topic
	}
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		server = "https://ntfy.sh"
	}
	return server + "/" + topic
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) MissingReports(ctx context.Context, departments []string) error {
	if len(departments) == 0 {
		return nil
	}
	data := payload{
		title:    "Courier - Missing Reports",
		message:  fmt.Sprintf("No report published for: %s", strings.Join(departments, ", ")),
		tags:     []string{"courier", "reports", "missing"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) RunFailed(ctx context.Context, kind, detail string) error {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "pipeline"
	}
	var builder strings.Builder
	builder.WriteString("Run failed: ")
	builder.WriteString(kind)
	if detail = strings.TrimSpace(detail); detail != "" {
		builder.WriteString(": ")
		builder.WriteString(detail)
	}
	data := payload{
		title:    "Courier - Run Failed",
		message:  builder.String(),
		tags:     []string{"courier", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Test(ctx context.Context) error {
	data := payload{
		title:    "Courier - Test",
		message:  "Alert system test",
		tags:     []string{"courier", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Noop returns the disabled alert service.
func Noop() Service { return noopService{} }

type noopService struct{}

func (noopService) MissingReports(context.Context, []string) error { return nil }
func (noopService) RunFailed(context.Context, string, string) error {
	return nil
}
func (noopService) Test(context.Context) error { return nil }
