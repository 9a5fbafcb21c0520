package control

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the control server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping checks that the daemon answers on the socket.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Courier.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Courier.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForceTransfer asks the daemon to run the transfer sequence.
func (c *Client) ForceTransfer() (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.client.Call("Courier.ForceTransfer", TransferRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForceBackup asks the daemon to run a backup.
func (c *Client) ForceBackup() (*BackupResponse, error) {
	var resp BackupResponse
	if err := c.client.Call("Courier.ForceBackup", BackupRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns recent pipeline runs.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Courier.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Changes returns recent change events.
func (c *Client) Changes(limit int) (*ChangesResponse, error) {
	var resp ChangesResponse
	if err := c.client.Call("Courier.Changes", ChangesRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestAlert triggers an alert delivery test via the daemon.
func (c *Client) TestAlert() (*TestAlertResponse, error) {
	var resp TestAlertResponse
	if err := c.client.Call("Courier.TestAlert", TestAlertRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Courier.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
