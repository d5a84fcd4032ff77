package ingest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

type MockTelemetryRepository struct {
	mock.Mock
}

func (m *MockTelemetryRepository) BatchPut(ctx context.Context, recs []telemetry.Record) ([]telemetry.Record, error) {
	args := m.Called(ctx, recs)
	var out []telemetry.Record
	if v := args.Get(0); v != nil {
		out = v.([]telemetry.Record)
	}
	return out, args.Error(1)
}

func (m *MockTelemetryRepository) Put(ctx context.Context, rec telemetry.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockTelemetryRepository) ApplyUpdate(ctx context.Context, spec telemetry.UpdateSpec, retries int) error {
	args := m.Called(ctx, spec, retries)
	return args.Error(0)
}

func (m *MockTelemetryRepository) TransactUpdates(ctx context.Context, specs []telemetry.UpdateSpec) error {
	args := m.Called(ctx, specs)
	return args.Error(0)
}

func (m *MockTelemetryRepository) LatestAggregates(ctx context.Context, raceID string) ([]telemetry.RiderAggregate, error) {
	args := m.Called(ctx, raceID)
	var out []telemetry.RiderAggregate
	if v := args.Get(0); v != nil {
		out = v.([]telemetry.RiderAggregate)
	}
	return out, args.Error(1)
}

func (m *MockTelemetryRepository) PersonalBests(ctx context.Context, raceID string) ([]telemetry.PersonalBestSample, error) {
	args := m.Called(ctx, raceID)
	var out []telemetry.PersonalBestSample
	if v := args.Get(0); v != nil {
		out = v.([]telemetry.PersonalBestSample)
	}
	return out, args.Error(1)
}

func (m *MockTelemetryRepository) PutRaceAggregate(ctx context.Context, agg telemetry.RaceAggregate) error {
	args := m.Called(ctx, agg)
	return args.Error(0)
}

type MockRaceDirectory struct {
	mock.Mock
}

func (m *MockRaceDirectory) UpdateRaceStatus(ctx context.Context, eventID, raceID string, status telemetry.RaceStatus, guardForward bool) error {
	args := m.Called(ctx, eventID, raceID, status, guardForward)
	return args.Error(0)
}

func (m *MockRaceDirectory) Race(ctx context.Context, eventID, raceID string) (telemetry.RaceInfo, error) {
	args := m.Called(ctx, eventID, raceID)
	return args.Get(0).(telemetry.RaceInfo), args.Error(1)
}

func (m *MockRaceDirectory) RiderBaseline(ctx context.Context, uciID string) (telemetry.RiderBaseline, error) {
	args := m.Called(ctx, uciID)
	return args.Get(0).(telemetry.RiderBaseline), args.Error(1)
}

type MockMailSink struct {
	mock.Mock
}

func (m *MockMailSink) Send(ctx context.Context, subject, body string) error {
	args := m.Called(ctx, subject, body)
	return args.Error(0)
}

type MockStatusPublisher struct {
	mock.Mock
}

func (m *MockStatusPublisher) PublishStatusChange(ctx context.Context, d telemetry.Details, status telemetry.RaceStatus) error {
	args := m.Called(ctx, d, status)
	return args.Error(0)
}

type MockMetricsSink struct {
	mock.Mock
}

func (m *MockMetricsSink) PutPipelineTimings(ctx context.Context, entity string, t ports.PipelineTimings) error {
	args := m.Called(ctx, entity, t)
	return args.Error(0)
}
