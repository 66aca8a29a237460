package database

import "context"

// Health reports whether the pool can reach the database.
func (c *Client) Health(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}
