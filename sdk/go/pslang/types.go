package pslang

import (
	"github.com/ppiankov/pslang/internal/ingest"
	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/profile"
	"github.com/ppiankov/pslang/internal/projector"
	"github.com/ppiankov/pslang/internal/zone"
)

type (
	ZoneType         = model.ZoneType
	Zone             = model.Zone
	Role             = model.Role
	Turn             = model.Turn
	EstimatedSignals = model.EstimatedSignals
	TransformResult  = model.TransformResult
	FilterResult     = model.FilterResult
	FilterStats      = model.FilterStats
	// Policy says which optional zone types an audience may see.
	Policy = zone.Policy
	// Projection is a filtered document plus the spans of the zones it had.
	// It never carries the content of removed zones.
	Projection = projector.Projection
	ZoneSpan   = projector.ZoneSpan
	// Audience is a resolved audience profile.
	Audience = profile.Resolved
)

const (
	ZonePassThrough = model.ZonePassThrough
	ZonePrivate     = model.ZonePrivate
	ZonePublic      = model.ZonePublic
	ZoneAction      = model.ZoneAction
	ZoneQuestion    = model.ZoneQuestion
	ZoneBenchmark   = model.ZoneBenchmark

	RoleUser      = model.RoleUser
	RoleAssistant = model.RoleAssistant
	RoleSystem    = model.RoleSystem
)

// Errors callers can match with errors.Is.
var (
	ErrUnknownAudience = profile.ErrUnknownProfile
	ErrTooLarge        = ingest.ErrTooLarge
	ErrInvalidUTF8     = ingest.ErrInvalidUTF8
	ErrInvalidTurn     = projector.ErrInvalidTurn
)
