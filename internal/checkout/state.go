package checkout

import (
	"fmt"
	"sync"
	"time"
)

// State 结算表单状态
type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// transitions 合法状态迁移表
var transitions = map[State][]State{
	StateEditing:    {StateValidating},
	StateValidating: {StateEditing, StateSubmitting},
	StateSubmitting: {StateSucceeded, StateFailed},
	StateFailed:     {StateEditing},
	StateSucceeded:  {},
}

// Status 状态快照
type Status struct {
	State     State     `json:"state"`
	LastError string    `json:"last_error,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Machine 结算状态机，可并发访问
type Machine struct {
	mu     sync.Mutex
	status Status
	now    func() time.Time
}

// NewMachine 创建状态机，初始为 editing
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{status: Status{State: StateEditing, UpdatedAt: now()}, now: now}
}

// Status 当前状态
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Reset 进入新的结算页面，提交中时不重置
func (m *Machine) Reset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.State == StateSubmitting || m.status.State == StateValidating {
		return false
	}
	m.status = Status{State: StateEditing, UpdatedAt: m.now()}
	return true
}

// BeginValidation editing -> validating
func (m *Machine) BeginValidation() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status.State {
	case StateValidating, StateSubmitting:
		return ErrSubmissionInProgress
	case StateSucceeded:
		return ErrAlreadySubmitted
	}
	return m.moveLocked(StateValidating)
}

// Reject validating -> editing，记录原因
func (m *Machine) Reject(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.moveLocked(StateEditing); err != nil {
		return err
	}
	m.status.LastError = reason
	return nil
}

// BeginSubmission validating -> submitting
func (m *Machine) BeginSubmission() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveLocked(StateSubmitting)
}

// Succeed submitting -> succeeded（终态）
func (m *Machine) Succeed(orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.moveLocked(StateSucceeded); err != nil {
		return err
	}
	m.status.OrderID = orderID
	m.status.LastError = ""
	return nil
}

// Fail submitting -> failed -> editing，表单保持可编辑
func (m *Machine) Fail(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.moveLocked(StateFailed); err != nil {
		return err
	}
	if err := m.moveLocked(StateEditing); err != nil {
		return err
	}
	m.status.LastError = reason
	return nil
}

func (m *Machine) moveLocked(next State) error {
	current := m.status.State
	for _, allowed := range transitions[current] {
		if allowed == next {
			m.status.State = next
			m.status.UpdatedAt = m.now()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}
