package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client is the CLI side of the daemon control socket.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the daemon socket, failing fast when nothing is
// listening so the CLI can fall back to direct database access.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:   conn,
		client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)),
	}, nil
}

// Close tears down the RPC codec and the socket beneath it.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// call performs one round trip against the Quill RPC service and returns the
// decoded response.
func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	resp := new(Resp)
	if err := c.client.Call("Quill."+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Start asks the daemon to begin working the queue.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", NoArgs{})
}

// Stop asks the daemon to pause queue processing.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", NoArgs{})
}

// Status fetches the daemon status snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", NoArgs{})
}

// AddFile enqueues a media file for transcription.
func (c *Client) AddFile(path string) (*AddFileResponse, error) {
	return call[AddFileResponse](c, "AddFile", AddFileRequest{Path: path})
}

// QueueList fetches queue items, narrowed to the given statuses when any.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueueList", QueueListRequest{Statuses: statuses})
}

// QueueDescribe fetches the full record for one queue item.
func (c *Client) QueueDescribe(id int64) (*QueueDescribeResponse, error) {
	return call[QueueDescribeResponse](c, "QueueDescribe", QueueDescribeRequest{ID: id})
}

// QueueClear deletes every queue item.
func (c *Client) QueueClear() (*RemovedCount, error) {
	return call[RemovedCount](c, "QueueClear", NoArgs{})
}

// QueueClearCompleted deletes completed items only.
func (c *Client) QueueClearCompleted() (*RemovedCount, error) {
	return call[RemovedCount](c, "QueueClearCompleted", NoArgs{})
}

// QueueClearFailed deletes failed items only.
func (c *Client) QueueClearFailed() (*RemovedCount, error) {
	return call[RemovedCount](c, "QueueClearFailed", NoArgs{})
}

// QueueReset returns items stuck mid-processing to pending.
func (c *Client) QueueReset() (*UpdatedCount, error) {
	return call[UpdatedCount](c, "QueueReset", NoArgs{})
}

// QueueRetry retries failed and review-parked items.
func (c *Client) QueueRetry(ids []int64) (*UpdatedCount, error) {
	return call[UpdatedCount](c, "QueueRetry", QueueRetryRequest{IDs: ids})
}

// QueueStop parks the given queue items for review.
func (c *Client) QueueStop(ids []int64) (*UpdatedCount, error) {
	return call[UpdatedCount](c, "QueueStop", QueueStopRequest{IDs: ids})
}

// QueueRemove deletes the given queue items regardless of status.
func (c *Client) QueueRemove(ids []int64) (*RemovedCount, error) {
	return call[RemovedCount](c, "QueueRemove", QueueRemoveRequest{IDs: ids})
}

// QueueHealth fetches queue counters grouped by status bucket.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return call[QueueHealthResponse](c, "QueueHealth", NoArgs{})
}

// DatabaseHealth fetches the detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", NoArgs{})
}

// LogTail fetches a window of daemon log lines.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification asks the daemon to send a notification through its
// configured channel.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", NoArgs{})
}
