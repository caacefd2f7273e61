package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketplace-service/models"
)

func TestCoupon_ValidAt(t *testing.T) {
	now := time.Now()
	c := &models.Coupon{StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)}

	assert.True(t, c.ValidAt(now))
	assert.True(t, c.ValidAt(c.StartsAt), "start is inclusive")
	assert.False(t, c.ValidAt(c.ExpiresAt), "expiry is exclusive")
	assert.False(t, c.ValidAt(now.Add(-2*time.Hour)), "not yet started")
}

func TestCoupon_Exhausted(t *testing.T) {
	c := &models.Coupon{UsageLimit: 2, TimesUsed: 1}
	assert.False(t, c.Exhausted())
	c.TimesUsed = 2
	assert.True(t, c.Exhausted())
}

func TestGroupOrder_IsActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&models.GroupOrder{Status: models.GroupOrderOpen}).IsActive(now))
	assert.True(t, (&models.GroupOrder{Status: models.GroupOrderOpen, Deadline: &future}).IsActive(now))
	assert.False(t, (&models.GroupOrder{Status: models.GroupOrderOpen, Deadline: &past}).IsActive(now))
	assert.False(t, (&models.GroupOrder{Status: models.GroupOrderClosed}).IsActive(now))
}
