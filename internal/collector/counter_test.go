package collector_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lsardim1/siem-log-collectors/internal/collector"
)

func TestErrorCounterEmpty(t *testing.T) {
	c := collector.NewErrorCounter()

	assert.True(t, c.Empty())
	assert.Equal(t, "no errors", c.SummaryLine())
	assert.Empty(t, c.AsMap())
}

func TestErrorCounterSummaryLineSorted(t *testing.T) {
	c := collector.NewErrorCounter()
	c.Inc("qradar_query_failed")
	c.Inc("inventory_failed")
	c.Inc("qradar_query_failed")
	c.IncBy("store_error", 3)

	assert.False(t, c.Empty())
	assert.Equal(t,
		"inventory_failed=1, qradar_query_failed=2, store_error=3",
		c.SummaryLine())
}

func TestErrorCounterAsMapIsACopy(t *testing.T) {
	c := collector.NewErrorCounter()
	c.Inc("a")

	m := c.AsMap()
	m["a"] = 99
	m["b"] = 1

	assert.Equal(t, map[string]int64{"a": 1}, c.AsMap())
}

func TestErrorCounterConcurrentIncrements(t *testing.T) {
	c := collector.NewErrorCounter()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc("contended")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), c.AsMap()["contended"])
}
