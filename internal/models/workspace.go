package models

import (
	"time"
)

type Workspace struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
	IsActive  bool
	Name      string
}
