package client

import "time"

// Client represents a registered wallet owner.
type Client struct {
	ID           string
	Email        string
	Name         string
	Surname      string
	PasswordHash []byte
	CreatedAt    time.Time
}
