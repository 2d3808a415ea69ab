package pipeline

import (
	"time"

	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/internal/monitoring"
)

// AlertStatusUpdater переводит сигнал в терминальный статус.
// Отдельный seam: ветки успеха и ошибки orchestrator используют
// одну и ту же семантику записи.
type AlertStatusUpdater struct {
	alerts domain.AlertRepository
	now    func() time.Time
}

// NewAlertStatusUpdater создает updater с системными часами
func NewAlertStatusUpdater(alerts domain.AlertRepository) *AlertStatusUpdater {
	return &AlertStatusUpdater{alerts: alerts, now: time.Now}
}

// UpdateStatus записывает статус и processed_at. Решений не принимает.
func (u *AlertStatusUpdater) UpdateStatus(alertID int64, status, message string) error {
	err := u.alerts.UpdateStatus(alertID, status, message, u.now())
	if err == nil {
		monitoring.AlertsProcessed.WithLabelValues(status).Inc()
	}
	return err
}
