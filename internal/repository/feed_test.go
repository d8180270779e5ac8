package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaimFeedDeliversTicks(t *testing.T) {
	feed := NewClaimFeed()

	ch, cancel := feed.Subscribe()
	defer cancel()

	feed.Publish()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a tick")
	}
}

func TestClaimFeedCoalescesPendingTicks(t *testing.T) {
	feed := NewClaimFeed()

	ch, cancel := feed.Subscribe()
	defer cancel()

	feed.Publish()
	feed.Publish()
	feed.Publish()

	<-ch
	select {
	case <-ch:
		t.Fatal("ticks should coalesce while unconsumed")
	default:
	}
}

func TestClaimFeedCancelStopsDelivery(t *testing.T) {
	feed := NewClaimFeed()

	ch, cancel := feed.Subscribe()
	cancel()
	assert.Equal(t, 0, feed.SubscriberCount())

	feed.Publish()
	select {
	case <-ch:
		t.Fatal("cancelled subscriber must not receive ticks")
	default:
	}
}

func TestClaimFeedIndependentSubscribers(t *testing.T) {
	feed := NewClaimFeed()

	ch1, cancel1 := feed.Subscribe()
	ch2, cancel2 := feed.Subscribe()
	defer cancel1()
	defer cancel2()

	feed.Publish()
	<-ch1
	<-ch2
	assert.Equal(t, 2, feed.SubscriberCount())
}
