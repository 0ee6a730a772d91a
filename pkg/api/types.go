package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/journal"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"` // codec error kind, when there is one
}

// RegionInfo summarizes one mapped region
type RegionInfo struct {
	Name     string  `json:"name"`
	Layout   string  `json:"layout"`
	Base     uint32  `json:"base_address"`
	Size     int     `json:"size"`
	Coverage float64 `json:"coverage"`
}

// RegionRecord is a decoded region
type RegionRecord struct {
	RegionInfo
	Fields codec.Record `json:"fields"`
}

// HistoryEntry is one journaled state of a region, without its bytes
type HistoryEntry struct {
	ID   string `json:"id"`
	Time string `json:"time"`
	Size int    `json:"size"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port        int
	Bind        string
	APIKey      string
	CORSOrigins []string
}

// History is the read side of the edit journal
type History interface {
	History(region string, limit int) ([]journal.Entry, error)
	Get(region string, id ksuid.KSUID) (journal.Entry, error)
}
