package engine

import (
	"context"
	"regexp"
)

// slotPattern matches the "YYYY-MM-DD HH:MM" slot format spoken back by
// the STT layer, which sometimes pads the separator with extra whitespace.
var slotPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2})`)

// findSlot returns the first slot in text, normalized to a single space
// between date and time.
func findSlot(text string) string {
	m := slotPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1] + " " + m[2]
}

// actionBooking drives the appointment state machine. Booking always
// requires a complete checklist: with fields still missing it aborts into
// collect_data behavior and forces the intent so routing continues there
// next turn.
func (p *Pipeline) actionBooking(ctx context.Context, st *CallState, out *turnOutput, text string) error {
	if len(st.MissingFields) > 0 {
		out.say(bookingPreamble())
		st.Intent = IntentCollectData
		p.actionCollect(st, out)
		return nil
	}

	switch st.Booking.Status {
	case BookingOffered:
		return p.bookingOffered(ctx, st, out, text)
	case BookingConfirmed, BookingFailed:
		// Only a brand-new slot cycle leaves these states.
		st.Booking = BookingRequest{Status: BookingIdle}
		out.say(bookingRestart)
		return nil
	}

	if st.Booking.RequestedSlot == "" {
		slot := findSlot(text)
		if slot == "" {
			out.say(askForSlotReply)
			return nil
		}
		st.Booking.RequestedSlot = slot
		st.Booking.Status = BookingChecking
	}

	return p.bookingCheck(ctx, st, out)
}

// bookingCheck asks the availability service about the requested slot and
// either commits, offers alternatives, or resets for a fresh attempt.
func (p *Pipeline) bookingCheck(ctx context.Context, st *CallState, out *turnOutput) error {
	result, err := p.availability.CheckAvailability(ctx, st.Booking.RequestedSlot)
	if err != nil {
		if isCancellation(err) {
			return err
		}
		// Transient failure: keep the checking state so the next turn
		// retries the same slot without re-parsing.
		p.logger.Warn("engine: availability check failed",
			"call_id", st.CallID, "stage", "manage_booking", "error", err)
		out.say(serviceDownReply)
		return nil
	}

	if result.Available {
		return p.bookingCommit(ctx, st, out, st.Booking.RequestedSlot)
	}

	if len(result.Alternatives) > 0 {
		st.Booking.Status = BookingOffered
		out.say(bookingAlternativesFor(st.Booking.RequestedSlot, result.Alternatives))
		return nil
	}

	// Unavailable with nothing to offer: surface the service's reason and
	// reset so the caller can retry with a different slot.
	out.say(bookingUnavailableFor(result.Reason))
	st.Booking = BookingRequest{Status: BookingIdle}
	return nil
}

// bookingOffered handles the caller's reply to offered alternatives.
func (p *Pipeline) bookingOffered(ctx context.Context, st *CallState, out *turnOutput, text string) error {
	slot := findSlot(text)
	if slot == "" {
		// Caller declined or changed topic: drop back to idle.
		st.Booking = BookingRequest{Status: BookingIdle}
		out.say(bookingDeclined)
		return nil
	}

	result, err := p.availability.CheckAvailability(ctx, slot)
	if err != nil {
		if isCancellation(err) {
			return err
		}
		p.logger.Warn("engine: availability check failed",
			"call_id", st.CallID, "stage", "manage_booking", "error", err)
		out.say(serviceDownReply)
		return nil
	}
	if !result.Available {
		out.say(bookingAlternativeRejected)
		return nil
	}
	return p.bookingCommit(ctx, st, out, slot)
}

// bookingCommit books the slot and moves the machine to confirmed.
// ConfirmedSlot is only ever set here, together with the status flip.
func (p *Pipeline) bookingCommit(ctx context.Context, st *CallState, out *turnOutput, slot string) error {
	if _, err := p.availability.Book(ctx, slot, st.Profile.IdentityKey); err != nil {
		if isCancellation(err) {
			return err
		}
		p.logger.Warn("engine: booking commit failed",
			"call_id", st.CallID, "stage", "manage_booking", "error", err)
		out.say(serviceDownReply)
		return nil
	}
	st.Booking = BookingRequest{
		RequestedSlot: slot,
		ConfirmedSlot: slot,
		Status:        BookingConfirmed,
	}
	out.say(bookingConfirmedFor(slot))
	return nil
}
