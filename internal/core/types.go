package core

import "swimeeter/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Meet               = domain.Meet
	Session            = domain.Session
	Event              = domain.Event
	Swimmer            = domain.Swimmer
	Team               = domain.Team
	IndividualEntry    = domain.IndividualEntry
	RelayEntry         = domain.RelayEntry
	RelayAssignment    = domain.RelayAssignment
	Placement          = domain.Placement
	Caller             = domain.Caller
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	DuplicatePolicy    = domain.DuplicatePolicy
	Preferences        = domain.Preferences
)

const (
	EntityMeet            = domain.EntityMeet
	EntitySession         = domain.EntitySession
	EntityEvent           = domain.EntityEvent
	EntitySwimmer         = domain.EntitySwimmer
	EntityTeam            = domain.EntityTeam
	EntityIndividualEntry = domain.EntityIndividualEntry
	EntityRelayEntry      = domain.EntityRelayEntry
	EntityRelayAssignment = domain.EntityRelayAssignment
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
