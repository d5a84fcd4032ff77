package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"velostream-backend/application/ports"
	"velostream-backend/domain/telemetry"
)

func newTestLifecycle(repo *MockTelemetryRepository, directory *MockRaceDirectory, mail *MockMailSink, publisher ports.StatusPublisher) *LifecycleController {
	logger := zap.NewNop()
	stats := NewRaceStatsComputer(repo, logger)
	notifier := NewPersonalBestNotifier(repo, directory, mail, "test", logger)
	return NewLifecycleController(directory, stats, notifier, publisher, logger)
}

func TestLifecycleController_RaceLive_PublishesOnSuccess(t *testing.T) {
	// Arrange
	ctx := context.Background()
	directory := new(MockRaceDirectory)
	publisher := new(MockStatusPublisher)
	lifecycle := newTestLifecycle(new(MockTelemetryRepository), directory, new(MockMailSink), publisher)

	d := telemetry.Details{Kind: telemetry.KindRaceStartLive, EventID: "210812", RaceID: "21081201"}
	directory.On("UpdateRaceStatus", ctx, "210812", "21081201", telemetry.StatusLive, true).Return(nil).Once()
	publisher.On("PublishStatusChange", ctx, d, telemetry.StatusLive).Return(nil).Once()

	// Act
	lifecycle.RaceLive(ctx, d)

	// Assert
	directory.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestLifecycleController_RaceLive_GuardedTransitionIsIgnored(t *testing.T) {
	// Arrange
	ctx := context.Background()
	directory := new(MockRaceDirectory)
	publisher := new(MockStatusPublisher)
	lifecycle := newTestLifecycle(new(MockTelemetryRepository), directory, new(MockMailSink), publisher)

	d := telemetry.Details{EventID: "210812", RaceID: "21081201"}
	directory.On("UpdateRaceStatus", ctx, "210812", "21081201", telemetry.StatusLive, true).
		Return(ports.ErrTransitionGuarded).Once()

	// Act
	lifecycle.RaceLive(ctx, d)

	// Assert
	publisher.AssertNotCalled(t, "PublishStatusChange", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycleController_RaceFinished_FullSequence(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockTelemetryRepository)
	directory := new(MockRaceDirectory)
	mail := new(MockMailSink)
	publisher := new(MockStatusPublisher)
	lifecycle := newTestLifecycle(repo, directory, mail, publisher)

	d := telemetry.Details{Kind: telemetry.KindFinishTime, EventID: "210812", RaceID: "21081201"}

	repo.On("LatestAggregates", ctx, "21081201").
		Return([]telemetry.RiderAggregate{{UCIID: "100", MaxPower: f(455)}}, nil).Once()
	repo.On("PutRaceAggregate", ctx, mock.Anything).Return(nil).Once()
	directory.On("UpdateRaceStatus", ctx, "210812", "21081201", telemetry.StatusFinished, false).Return(nil).Once()
	publisher.On("PublishStatusChange", ctx, d, telemetry.StatusFinished).Return(nil).Once()
	directory.On("Race", ctx, "210812", "21081201").
		Return(telemetry.RaceInfo{RaceID: "21081201", RaceName: "Sprint"}, nil).Once()
	repo.On("PersonalBests", ctx, "21081201").Return(nil, nil).Once()
	mail.On("Send", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	// Act
	lifecycle.RaceFinished(ctx, d)

	// Assert
	repo.AssertExpectations(t)
	directory.AssertExpectations(t)
	publisher.AssertExpectations(t)
	mail.AssertExpectations(t)
}

func TestLifecycleController_RaceFinished_AggregateFailureStillFinishesRace(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockTelemetryRepository)
	directory := new(MockRaceDirectory)
	mail := new(MockMailSink)
	lifecycle := newTestLifecycle(repo, directory, mail, nil)

	d := telemetry.Details{EventID: "210812", RaceID: "21081201"}

	// No aggregate rows at all: the reduction fails loudly.
	repo.On("LatestAggregates", ctx, "21081201").Return(nil, nil).Once()
	directory.On("UpdateRaceStatus", ctx, "210812", "21081201", telemetry.StatusFinished, false).Return(nil).Once()
	directory.On("Race", ctx, "210812", "21081201").
		Return(telemetry.RaceInfo{RaceID: "21081201", RaceName: "Sprint"}, nil).Once()
	repo.On("PersonalBests", ctx, "21081201").Return(nil, nil).Once()
	mail.On("Send", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	// Act
	lifecycle.RaceFinished(ctx, d)

	// Assert
	directory.AssertExpectations(t)
	repo.AssertNotCalled(t, "PutRaceAggregate", mock.Anything, mock.Anything)
}

func TestLifecycleController_RaceFinished_StatusFailureSkipsPublish(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockTelemetryRepository)
	directory := new(MockRaceDirectory)
	mail := new(MockMailSink)
	publisher := new(MockStatusPublisher)
	lifecycle := newTestLifecycle(repo, directory, mail, publisher)

	d := telemetry.Details{EventID: "210812", RaceID: "21081201"}

	repo.On("LatestAggregates", ctx, "21081201").
		Return([]telemetry.RiderAggregate{{UCIID: "100", MaxPower: f(455)}}, nil).Once()
	repo.On("PutRaceAggregate", ctx, mock.Anything).Return(nil).Once()
	directory.On("UpdateRaceStatus", ctx, "210812", "21081201", telemetry.StatusFinished, false).
		Return(errors.New("store down")).Once()
	directory.On("Race", ctx, "210812", "21081201").
		Return(telemetry.RaceInfo{RaceID: "21081201", RaceName: "Sprint"}, nil).Once()
	repo.On("PersonalBests", ctx, "21081201").Return(nil, nil).Once()
	mail.On("Send", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	// Act
	lifecycle.RaceFinished(ctx, d)

	// Assert
	publisher.AssertNotCalled(t, "PublishStatusChange", mock.Anything, mock.Anything, mock.Anything)
	mail.AssertExpectations(t)
}
