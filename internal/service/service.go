package service

import (
	"github.com/flowx/backend/internal/domain"
)

// TrafficRepository is re-exported from domain for convenience
type TrafficRepository = domain.TrafficRepository
