package model

import (
	"github.com/arcfarm/irrigation-backend/internal/model/entities"
	"github.com/arcfarm/irrigation-backend/internal/model/messages"
)

// Aliases so services can import a single model package.

type (
	ScheduleRecord  = entities.ScheduleRecord
	Settings        = entities.Settings
	TelemetrySample = messages.TelemetrySample
	StateSnapshot   = messages.StateSnapshot
)

var ParseTelemetry = messages.ParseTelemetry
