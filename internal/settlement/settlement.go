// Package settlement applies settle and reverse actions to ledger entries
// through an explicit transition table, including the rateio cascade
// from a level-1 entry to its level-2 siblings.
package settlement

import (
	"errors"
	"fmt"

	"financeiro/internal/core"
)

const (
	Settle  Action = "settle"
	Reverse Action = "reverse"
	Overdue Action = "overdue"
)

// Roles an entry plays in a transition.
const (
	RolePlain Role = iota
	RoleMaster
	RoleSplit
	// RoleSibling is a level-2 entry reached through its master's cascade.
	RoleSibling
)

var (
	ErrNotFound          = errors.New("entry not found")
	ErrNotPersisted      = errors.New("entry is derived and cannot be settled directly")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type (
	Action string
	Role   int

	transitionKey struct {
		role   Role
		action Action
		from   core.Status
	}

	// Result lists the entries an action changed. Target is the entry the
	// action was applied to; Cascaded are siblings moved by it.
	Result struct {
		Target   core.Entry
		Cascaded []core.Entry
	}
)

// transitions is the complete state machine. Pairs not listed are
// rejected for targets and left alone for siblings.
var transitions = map[transitionKey]core.Status{
	{RolePlain, Settle, core.StatusPendente}:  core.StatusPago,
	{RolePlain, Settle, core.StatusAtrasado}:  core.StatusPago,
	{RolePlain, Reverse, core.StatusPago}:     core.StatusPendente,
	{RolePlain, Overdue, core.StatusPendente}: core.StatusAtrasado,

	{RoleMaster, Settle, core.StatusPendente}:  core.StatusPago,
	{RoleMaster, Settle, core.StatusAtrasado}:  core.StatusPago,
	{RoleMaster, Reverse, core.StatusPago}:     core.StatusPendente,
	{RoleMaster, Overdue, core.StatusPendente}: core.StatusAtrasado,

	{RoleSplit, Settle, core.StatusPendente}:  core.StatusPago,
	{RoleSplit, Settle, core.StatusAtrasado}:  core.StatusPago,
	{RoleSplit, Reverse, core.StatusPago}:     core.StatusPendente,
	{RoleSplit, Overdue, core.StatusPendente}: core.StatusAtrasado,

	{RoleSibling, Settle, core.StatusAguardando}: core.StatusPendente,
	{RoleSibling, Reverse, core.StatusPendente}:  core.StatusAguardando,
}

// Next looks up the transition for a role, action and current status.
func Next(role Role, action Action, from core.Status) (core.Status, bool) {
	to, ok := transitions[transitionKey{role, action, from}]
	return to, ok
}

// RoleOf maps an entry kind to its role as an action target.
func RoleOf(e core.Entry) (Role, error) {
	switch k := e.Kind(); k {
	case core.KindPlain:
		return RolePlain, nil
	case core.KindRateioMaster:
		return RoleMaster, nil
	case core.KindRateioSplit:
		return RoleSplit, nil
	case core.KindForecastVirtual, core.KindInvoice:
		return 0, fmt.Errorf("%w: %s is %s", ErrNotPersisted, e.ID, k)
	default:
		return 0, fmt.Errorf("%w: unknown kind %d", ErrNotPersisted, k)
	}
}

// Apply runs action on the entry with the given id. on is the settlement
// date used by Settle. Inputs are not modified; changed copies are
// returned.
func Apply(entries []core.Entry, id core.EntryID, action Action, on core.Date) (Result, error) {
	idx := -1
	for i := range entries {
		if entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	target := entries[idx]

	role, err := RoleOf(target)
	if err != nil {
		return Result{}, err
	}
	to, ok := Next(role, action, target.Status)
	if !ok {
		return Result{}, fmt.Errorf("%w: cannot %s %s entry in status %s", ErrInvalidTransition, action, target.Kind(), target.Status)
	}

	res := Result{Target: move(target, to, on)}
	if role != RoleMaster {
		return res, nil
	}

	for _, e := range entries {
		if !isSibling(e, target) {
			continue
		}
		if next, ok := Next(RoleSibling, action, e.Status); ok {
			res.Cascaded = append(res.Cascaded, move(e, next, core.Date{}))
		}
	}
	return res, nil
}

// SettleEntry marks an entry paid on the given date.
func SettleEntry(entries []core.Entry, id core.EntryID, on core.Date) (Result, error) {
	return Apply(entries, id, Settle, on)
}

// ReverseEntry undoes a settlement.
func ReverseEntry(entries []core.Entry, id core.EntryID) (Result, error) {
	return Apply(entries, id, Reverse, core.Date{})
}

// MarkOverdue returns copies of the persisted entries that are pendente
// and due before today, moved to atrasado.
func MarkOverdue(entries []core.Entry, today core.Date) []core.Entry {
	var out []core.Entry
	for _, e := range entries {
		if e.DueDate.IsEmpty() || !e.DueDate.Before(today) {
			continue
		}
		role, err := RoleOf(e)
		if err != nil {
			continue
		}
		if to, ok := Next(role, Overdue, e.Status); ok {
			out = append(out, move(e, to, core.Date{}))
		}
	}
	return out
}

func isSibling(e, master core.Entry) bool {
	return e.Kind() == core.KindRateioSplit &&
		e.RateioID == master.RateioID &&
		e.RateioMasterID == master.ID
}

func move(e core.Entry, to core.Status, on core.Date) core.Entry {
	e.Status = to
	if to == core.StatusPago {
		e.SettlementDate = on
	} else {
		e.SettlementDate = core.Date{}
	}
	return e
}
