package mock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/clock"
)

var ErrNotImplemented = errors.New("not implemented")

type Client struct {
	CreateShipmentDeliveryFunc      func(ctx context.Context, params *shipcode.CreateShipmentDeliveryInput) (*shipcode.CreateShipmentDeliveryOutput, error)
	GetShipmentByNumberFunc         func(ctx context.Context, params *shipcode.GetShipmentByNumberInput) (*shipcode.GetShipmentOutput, error)
	GetShipmentByDeliveryNumberFunc func(ctx context.Context, params *shipcode.GetShipmentByDeliveryNumberInput) (*shipcode.GetShipmentOutput, error)
	ListShipmentsFunc               func(ctx context.Context, params *shipcode.ListShipmentsInput) (*shipcode.ListShipmentsOutput, error)
	SearchShipmentFunc              func(ctx context.Context, params *shipcode.SearchShipmentInput) (*shipcode.SearchShipmentOutput, error)
	UpdateShipmentFunc              func(ctx context.Context, params *shipcode.UpdateShipmentInput) (*shipcode.UpdateShipmentOutput, error)
	TestConnectionFunc              func(ctx context.Context) (bool, error)
}

func (m Client) CreateShipmentDelivery(ctx context.Context, params *shipcode.CreateShipmentDeliveryInput) (*shipcode.CreateShipmentDeliveryOutput, error) {
	if m.CreateShipmentDeliveryFunc != nil {
		return m.CreateShipmentDeliveryFunc(ctx, params)
	}
	return nil, ErrNotImplemented
}

func (m Client) GetShipmentByNumber(ctx context.Context, params *shipcode.GetShipmentByNumberInput) (*shipcode.GetShipmentOutput, error) {
	if m.GetShipmentByNumberFunc != nil {
		return m.GetShipmentByNumberFunc(ctx, params)
	}
	return nil, ErrNotImplemented
}

func (m Client) GetShipmentByDeliveryNumber(ctx context.Context, params *shipcode.GetShipmentByDeliveryNumberInput) (*shipcode.GetShipmentOutput, error) {
	if m.GetShipmentByDeliveryNumberFunc != nil {
		return m.GetShipmentByDeliveryNumberFunc(ctx, params)
	}
	return nil, ErrNotImplemented
}

func (m Client) ListShipments(ctx context.Context, params *shipcode.ListShipmentsInput) (*shipcode.ListShipmentsOutput, error) {
	if m.ListShipmentsFunc != nil {
		return m.ListShipmentsFunc(ctx, params)
	}
	return nil, ErrNotImplemented
}

// SearchShipment falls back to the delivery-then-shipment lookup over the
// Get funcs when SearchShipmentFunc is not set.
func (m Client) SearchShipment(ctx context.Context, params *shipcode.SearchShipmentInput) (*shipcode.SearchShipmentOutput, error) {
	if m.SearchShipmentFunc != nil {
		return m.SearchShipmentFunc(ctx, params)
	}
	if m.GetShipmentByDeliveryNumberFunc != nil || m.GetShipmentByNumberFunc != nil {
		if params == nil {
			params = &shipcode.SearchShipmentInput{}
		}
		return shipcode.Search(ctx, m, params.Term)
	}
	return nil, ErrNotImplemented
}

func (m Client) UpdateShipment(ctx context.Context, params *shipcode.UpdateShipmentInput) (*shipcode.UpdateShipmentOutput, error) {
	if m.UpdateShipmentFunc != nil {
		return m.UpdateShipmentFunc(ctx, params)
	}
	return nil, ErrNotImplemented
}

func (m Client) TestConnection(ctx context.Context) (bool, error) {
	if m.TestConnectionFunc != nil {
		return m.TestConnectionFunc(ctx)
	}
	return false, ErrNotImplemented
}

var SuccessfulMockClient = &Client{
	CreateShipmentDeliveryFunc: func(ctx context.Context, params *shipcode.CreateShipmentDeliveryInput) (*shipcode.CreateShipmentDeliveryOutput, error) {
		return &shipcode.CreateShipmentDeliveryOutput{}, nil
	},
	GetShipmentByNumberFunc: func(ctx context.Context, params *shipcode.GetShipmentByNumberInput) (*shipcode.GetShipmentOutput, error) {
		return &shipcode.GetShipmentOutput{Shipment: &shipcode.Shipment{ShipmentNumber: params.ShipmentNumber}}, nil
	},
	GetShipmentByDeliveryNumberFunc: func(ctx context.Context, params *shipcode.GetShipmentByDeliveryNumberInput) (*shipcode.GetShipmentOutput, error) {
		return &shipcode.GetShipmentOutput{Shipment: &shipcode.Shipment{}}, nil
	},
	ListShipmentsFunc: func(ctx context.Context, params *shipcode.ListShipmentsInput) (*shipcode.ListShipmentsOutput, error) {
		return &shipcode.ListShipmentsOutput{}, nil
	},
	SearchShipmentFunc: func(ctx context.Context, params *shipcode.SearchShipmentInput) (*shipcode.SearchShipmentOutput, error) {
		return &shipcode.SearchShipmentOutput{Shipment: &shipcode.Shipment{}, MatchedBy: shipcode.MatchedByDelivery}, nil
	},
	UpdateShipmentFunc: func(ctx context.Context, params *shipcode.UpdateShipmentInput) (*shipcode.UpdateShipmentOutput, error) {
		return &shipcode.UpdateShipmentOutput{Shipment: &shipcode.Shipment{}}, nil
	},
	TestConnectionFunc: func(ctx context.Context) (bool, error) {
		return true, nil
	},
}

// Clock is a manually driven clock.Clock. Scheduled functions run
// synchronously inside Advance, in due order.
type Clock struct {
	mu     sync.Mutex
	T      time.Time
	timers []*timer
	seq    int
}

func NewClock(t time.Time) *Clock {
	return &Clock{T: t}
}

func (m *Clock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.T
}

func (m *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &timer{clock: m, at: m.T.Add(d), f: f, seq: m.seq}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d and runs every function that
// became due.
func (m *Clock) Advance(d time.Duration) {
	m.mu.Lock()
	m.T = m.T.Add(d)
	var due, rest []*timer
	for _, t := range m.timers {
		if !t.at.After(m.T) {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	m.timers = rest
	m.mu.Unlock()
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of scheduled functions that have not run or
// been stopped.
func (m *Clock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

type timer struct {
	clock *Clock
	at    time.Time
	f     func()
	seq   int
}

func (t *timer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

func WithClock(c clock.Clock) func(*shipcode.ClientOptions) {
	return func(o *shipcode.ClientOptions) {
		if c != nil {
			o.Clock = c
		}
	}
}
