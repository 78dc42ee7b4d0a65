package entity

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleTimeUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", `"2030-06-01T10:00:00Z"`, time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC), false},
		{"datetime-local", `"2030-06-01T10:00"`, time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC), false},
		{"date only", `"2030-06-01"`, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"space separated", `"2030-06-01 10:00:00"`, time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC), false},
		{"null", `null`, time.Time{}, false},
		{"garbage", `"someday"`, time.Time{}, true},
		{"number", `12345`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ft FlexibleTime
			err := json.Unmarshal([]byte(tt.input), &ft)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(ft.Time), "got %v", ft.Time)
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	assert.ErrorIs(t, NewValidationError("bad %s", "input"), ErrInvalidInput)
	assert.ErrorIs(t, &InsufficientSeatsError{Requested: 3, Available: 1}, ErrNotEnoughSeats)
	assert.ErrorIs(t, &ForbiddenError{Message: "no"}, ErrForbidden)

	wrapped := errors.Join(errors.New("context"), &InsufficientSeatsError{Requested: 3, Available: 1})
	var insufficient *InsufficientSeatsError
	require.ErrorAs(t, wrapped, &insufficient)
	assert.Equal(t, 1, insufficient.Available)
}

func TestBookingView(t *testing.T) {
	booking := &Booking{ID: "b", EventID: "e", UserID: "u", SeatsBooked: 2, Status: BookingStatusConfirmed}

	view := NewBookingView(booking, nil, nil)
	assert.Nil(t, view.Event)
	assert.Equal(t, "u", view.User)

	event := &Event{ID: "e", Title: "Show", Location: "Hall", TotalSeats: 10}
	user := &User{ID: "u", Name: "Ann", Email: "ann@example.com", PasswordHash: "hash"}
	view = NewBookingView(booking, event, user)
	assert.Equal(t, &EventSummary{ID: "e", Title: "Show", Location: "Hall"}, view.Event)
	assert.Equal(t, &UserSummary{ID: "u", Name: "Ann", Email: "ann@example.com"}, view.User)

	payload, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "hash")
}

func TestEventOwnership(t *testing.T) {
	event := &Event{Organizer: "org"}
	assert.True(t, event.IsOrganizer("org"))
	assert.False(t, event.IsOrganizer("other"))
	assert.False(t, (&Event{}).IsOrganizer(""))
}
