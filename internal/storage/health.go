package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthStatus struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Services  []ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker pings the backing stores.
type HealthChecker struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	var services []ServiceHealth
	overall := "healthy"

	if h.DB != nil {
		svc := ServiceHealth{Name: "PostgreSQL", Status: "up"}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(pingCtx)
		}
		cancel()
		if err != nil {
			svc.Status = "down"
			svc.Message = err.Error()
			overall = "degraded"
		}
		services = append(services, svc)
	}

	if h.Redis != nil {
		svc := ServiceHealth{Name: "Redis", Status: "up"}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			svc.Status = "down"
			svc.Message = err.Error()
			overall = "degraded"
		}
		services = append(services, svc)
	}

	return HealthStatus{Status: overall, Timestamp: time.Now(), Services: services}
}
