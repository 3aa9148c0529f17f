package notify

import (
	"go.uber.org/zap"

	"github.com/ddong8/quant-future-sub001/internal/domain"
)

// LogNotifier writes lifecycle events to the application log. Used as the
// fallback notifier and alongside the websocket hub.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OnProgress(taskID string, percent float64, status domain.TaskStatus) {
	n.logger.Debug("task progress",
		zap.String("task_id", taskID),
		zap.Float64("percent", percent),
		zap.String("status", string(status)),
	)
}

func (n *LogNotifier) OnCompleted(taskID string, report *domain.PerformanceReport) {
	n.logger.Info("task completed",
		zap.String("task_id", taskID),
		zap.String("backtest_id", report.BacktestID),
		zap.Float64("total_return", report.TotalReturn),
		zap.Float64("sharpe", report.SharpeRatio),
	)
}

func (n *LogNotifier) OnFailed(taskID string, errMsg string, retryCount int) {
	n.logger.Warn("task failed",
		zap.String("task_id", taskID),
		zap.String("error", errMsg),
		zap.Int("retry_count", retryCount),
	)
}

// Multi fans every event out to all wrapped notifiers.
type Multi []domain.Notifier

func (m Multi) OnProgress(taskID string, percent float64, status domain.TaskStatus) {
	for _, n := range m {
		n.OnProgress(taskID, percent, status)
	}
}

func (m Multi) OnCompleted(taskID string, report *domain.PerformanceReport) {
	for _, n := range m {
		n.OnCompleted(taskID, report)
	}
}

func (m Multi) OnFailed(taskID string, errMsg string, retryCount int) {
	for _, n := range m {
		n.OnFailed(taskID, errMsg, retryCount)
	}
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (Multi)(nil)
)
