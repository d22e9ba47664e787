package storage

import (
	"context"
	"errors"
	"time"
)

var ErrRecordNotFound = errors.New("endpoint record not found")

// EndpointRecord is the last address successfully relayed for a tunnel.
type EndpointRecord struct {
	TunnelID       string    `json:"tunnel_id"`
	IPv4           string    `json:"ipv4remote"`
	UpstreamStatus int       `json:"upstream_status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RecordStore interface {
	PutRecord(ctx context.Context, rec EndpointRecord) error
	// GetRecord returns ErrRecordNotFound when the tunnel has no archived
	// record.
	GetRecord(ctx context.Context, tunnelID string) (*EndpointRecord, error)
}
