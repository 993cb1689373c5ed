// Package models defines the branch directory entity. Branches are
// provisioned by seed tooling and read-only through the API.
package models

import (
	"time"

	"intia/pkg/domain"
)

type Branch struct {
	ID        domain.BranchID `json:"id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Address   string          `json:"address"`
	Phone     string          `json:"phone"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
