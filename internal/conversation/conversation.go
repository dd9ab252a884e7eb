// Package conversation keeps the per-user multi-step dialogue state.
//
// A user has at most one active flow. Starting a flow replaces whatever was
// in progress, including flows of a different kind.
package conversation

import (
	"sync"
	"time"
)

type Flow string

const (
	FlowCheckout Flow = "checkout"
	FlowReview   Flow = "review"
	FlowSearch   Flow = "search"
	FlowConsult  Flow = "consult"
)

type Step string

const (
	StepNone                 Step = "none"
	StepCollectingName       Step = "collecting_name"
	StepCollectingPhone      Step = "collecting_phone"
	StepCollectingCity       Step = "collecting_city"
	StepCollectingAddress    Step = "collecting_address"
	StepAwaitingPaymentProof Step = "awaiting_payment_proof"
	StepAwaitingReviewText   Step = "awaiting_review_text"
	StepAwaitingSearchQuery  Step = "awaiting_search_query"
	StepAwaitingQuestion     Step = "awaiting_question"
)

// FirstStep is the step a freshly started flow is placed on.
func FirstStep(f Flow) Step {
	switch f {
	case FlowCheckout:
		return StepCollectingName
	case FlowReview:
		return StepAwaitingReviewText
	case FlowSearch:
		return StepAwaitingSearchQuery
	case FlowConsult:
		return StepAwaitingQuestion
	default:
		return StepNone
	}
}

// Data is what a flow has collected so far. Zero fields mean "not collected".
type Data struct {
	ProductID     uint
	ProductTitle  string
	FullName      string
	Phone         string
	City          string
	Address       string
	OrderID       uint
	CheckoutKey   string
	ReviewOrderID uint
}

// merge copies the non-zero fields of in over d.
func (d Data) merge(in Data) Data {
	if in.ProductID != 0 {
		d.ProductID = in.ProductID
	}
	if in.ProductTitle != "" {
		d.ProductTitle = in.ProductTitle
	}
	if in.FullName != "" {
		d.FullName = in.FullName
	}
	if in.Phone != "" {
		d.Phone = in.Phone
	}
	if in.City != "" {
		d.City = in.City
	}
	if in.Address != "" {
		d.Address = in.Address
	}
	if in.OrderID != 0 {
		d.OrderID = in.OrderID
	}
	if in.CheckoutKey != "" {
		d.CheckoutKey = in.CheckoutKey
	}
	if in.ReviewOrderID != 0 {
		d.ReviewOrderID = in.ReviewOrderID
	}
	return d
}

type State struct {
	Flow      Flow
	Step      Step
	Data      Data
	UpdatedAt time.Time
}

type Manager interface {
	// Start discards any prior state of the user and places them on the flow's first step.
	Start(userID int64, flow Flow, data Data) State
	// Current returns the active state; ok is false when no flow is active.
	Current(userID int64) (State, bool)
	CurrentStep(userID int64) Step
	// Advance moves the active flow to next and merges data into what was collected.
	// It reports false when the user has no active flow.
	Advance(userID int64, next Step, data Data) (State, bool)
	Clear(userID int64)
}

type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State), now: time.Now}
}

func (s *MemoryStore) Start(userID int64, flow Flow, data Data) State {
	st := State{Flow: flow, Step: FirstStep(flow), Data: data, UpdatedAt: s.now()}

	s.mu.Lock()
	s.states[userID] = st
	s.mu.Unlock()
	return st
}

func (s *MemoryStore) Current(userID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	return st, ok
}

func (s *MemoryStore) CurrentStep(userID int64) Step {
	if st, ok := s.Current(userID); ok {
		return st.Step
	}
	return StepNone
}

func (s *MemoryStore) Advance(userID int64, next Step, data Data) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return State{}, false
	}
	st.Step = next
	st.Data = st.Data.merge(data)
	st.UpdatedAt = s.now()
	s.states[userID] = st
	return st, true
}

func (s *MemoryStore) Clear(userID int64) {
	s.mu.Lock()
	delete(s.states, userID)
	s.mu.Unlock()
}

// Len reports how many users have an active flow.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
