package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentcoord"

// Metrics holds all coordinator metric instruments.
type Metrics struct {
	RequestsPlanned   metric.Int64Counter
	RequestsCompleted metric.Int64Counter
	TasksAssigned     metric.Int64Counter
	TasksDone         metric.Int64Counter
	TasksApproved     metric.Int64Counter
	OpDuration        metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RequestsPlanned, err = meter.Int64Counter("agentcoord.requests.planned",
		metric.WithDescription("Number of requests registered"))
	if err != nil {
		return nil, err
	}

	m.RequestsCompleted, err = meter.Int64Counter("agentcoord.requests.completed",
		metric.WithDescription("Number of requests completed"))
	if err != nil {
		return nil, err
	}

	m.TasksAssigned, err = meter.Int64Counter("agentcoord.tasks.assigned",
		metric.WithDescription("Number of tasks handed to agents"))
	if err != nil {
		return nil, err
	}

	m.TasksDone, err = meter.Int64Counter("agentcoord.tasks.done",
		metric.WithDescription("Number of tasks marked done"))
	if err != nil {
		return nil, err
	}

	m.TasksApproved, err = meter.Int64Counter("agentcoord.tasks.approved",
		metric.WithDescription("Number of tasks approved"))
	if err != nil {
		return nil, err
	}

	m.OpDuration, err = meter.Float64Histogram("agentcoord.op.duration_seconds",
		metric.WithDescription("Coordinator operation duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
