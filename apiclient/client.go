// Package apiclient talks to a VIIPER server: bus and device management over
// the request/response API, and per-device input streams.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alia5/viistream/apitypes"
)

// Client provides a high-level interface to the VIIPER API.
type Client struct{ transport *Transport }

// New constructs a client for the server at addr.
func New(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the VIIPER server.
func (c *Client) Ping(ctx context.Context) (*apitypes.PingResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// BusCreate creates a virtual bus with the given number.
func (c *Client) BusCreate(ctx context.Context, busID uint32) (*apitypes.BusCreateResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/create", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusCreateResponse](raw)
}

// BusRemove removes a bus and every device on it.
func (c *Client) BusRemove(ctx context.Context, busID uint32) (*apitypes.BusRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/remove", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusRemoveResponse](raw)
}

// DeviceAdd adds a device of devType (e.g. "xbox360", "mouse") to a bus.
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, devType string) (*apitypes.Device, error) {
	payload, err := json.Marshal(apitypes.DeviceCreateRequest{Type: &devType})
	if err != nil {
		return nil, fmt.Errorf("marshal device create request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/add", payload, map[string]string{"id": fmt.Sprintf("%d", busID)})
	if err != nil {
		return nil, err
	}
	return parse[apitypes.Device](raw)
}

// DeviceRemove removes device devID from a bus, closing its stream.
func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*apitypes.DeviceRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/remove", devID, map[string]string{"id": fmt.Sprintf("%d", busID)})
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DeviceRemoveResponse](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	if err := json.NewDecoder(bytes.NewReader([]byte(data))).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
