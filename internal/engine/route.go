package engine

// stageRoute classifies the utterance and applies the override rules, in
// order:
//
//  1. an offered booking alternative forces intent to booking, so a reply
//     like "el martes a las 10" is never mis-read as plain data collection;
//  2. an FAQ asked mid-checklist flags the digression for later resumption;
//  3. missing fields are recomputed from the (possibly just-hydrated)
//     profile;
//  4. while the checklist is outstanding, anything that is not faq,
//     booking, end_call or greeting is routed to collect_data regardless
//     of what the classifier said.
//
// Note the rule-1/rule-4 interaction: with an offered slot pending AND
// fields still missing, booking wins and the checklist question is
// deferred a turn. Deliberate: an offered slot expires faster than a
// missing email.
//
// This stage is a pure function of state; it performs no I/O.
func (p *Pipeline) stageRoute(st *CallState, text string) {
	intent := ParseIntent(p.classifier.Classify(text))

	if st.Booking.Status == BookingOffered {
		intent = IntentBooking
	}

	if intent == IntentFAQ && st.ActiveSlot != "" {
		st.PendingFAQInterrupt = true
	}

	st.RecomputeMissing()

	if len(st.MissingFields) > 0 {
		switch intent {
		case IntentFAQ, IntentBooking, IntentEndCall, IntentGreeting:
		default:
			intent = IntentCollectData
		}
	}

	st.Intent = intent
}
