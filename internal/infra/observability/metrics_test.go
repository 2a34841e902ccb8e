package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
)

func TestMetrics_CollectionSnapshot(t *testing.T) {
	m := NewMetrics()

	m.IncrEngineRun("success")
	m.IncrEngineRun("error")
	m.IncrReminderSent(domain.ChannelEmail)
	m.IncrReminderSent(domain.ChannelEmail)
	m.IncrReminderSent(domain.ChannelSMS)
	m.IncrReminderFailed(domain.ChannelSMS)
	m.IncrReminderSkipped(string(domain.SuppressHoliday))
	m.IncrRulePaused()
	m.IncrCacheHit("holidays")
	m.IncrCacheMiss("holidays")
	m.IncrCacheHit("holidays")
	m.IncrCacheHit("holidays")

	snap := m.GetCollectionSnapshot()

	assert.Equal(t, int64(2), snap.Runs)
	assert.Equal(t, int64(2), snap.Sent["email"])
	assert.Equal(t, int64(1), snap.Sent["sms"])
	assert.Equal(t, int64(1), snap.Failed["sms"])
	assert.Equal(t, int64(0), snap.Failed["whatsapp_web"])
	assert.Equal(t, int64(1), snap.SkippedByKind["feriado"])
	assert.Equal(t, int64(1), snap.RulesPaused)
	assert.InDelta(t, 0.25, snap.ErrorRate, 1e-9)
	assert.InDelta(t, 0.75, snap.CacheHitRate, 1e-9)
}

func TestMetrics_EmptySnapshot(t *testing.T) {
	snap := NewMetrics().GetCollectionSnapshot()

	assert.Zero(t, snap.Runs)
	assert.Zero(t, snap.ErrorRate)
	assert.Zero(t, snap.CacheHitRate)
	assert.Empty(t, snap.SkippedByKind)
}
