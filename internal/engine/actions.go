package engine

import (
	"context"
)

// actionGreet welcomes the caller, personalized with their name and, for a
// verified caller with history, a reference to the most recent past
// interaction.
func (p *Pipeline) actionGreet(st *CallState, out *turnOutput) {
	name := st.Profile.Data[DisplayNameField]
	lastVisit := ""
	if st.Profile.Verified && len(st.Profile.History) > 0 {
		lastVisit = st.Profile.History[len(st.Profile.History)-1]
	}
	out.say(greetingFor(name, lastVisit))
}

// actionFAQ answers a knowledge-base question. If the question interrupted
// an outstanding checklist prompt, the exact prompt is re-emitted right
// after the answer so the conversation resumes where it left off.
func (p *Pipeline) actionFAQ(ctx context.Context, st *CallState, out *turnOutput, text string) error {
	answer, ok, err := p.knowledge.Search(ctx, text)
	switch {
	case err != nil:
		if isCancellation(err) {
			return err
		}
		p.logger.Warn("engine: knowledge lookup failed",
			"call_id", st.CallID, "stage", "answer_faq", "error", err)
		out.say(serviceDownReply)
	case !ok:
		out.say(fallbackAnswer)
	default:
		out.say(answer)
	}

	if st.PendingFAQInterrupt {
		if len(st.MissingFields) > 0 {
			next := st.MissingFields[0]
			out.say(PromptFor(next))
			st.ActiveSlot = next
		}
		st.PendingFAQInterrupt = false
	}
	return nil
}

// actionCollect asks for the next missing checklist field, or announces
// completion once everything is known.
func (p *Pipeline) actionCollect(st *CallState, out *turnOutput) {
	if len(st.MissingFields) == 0 {
		lastVisit := ""
		if st.Profile.Verified && len(st.Profile.History) > 0 {
			lastVisit = st.Profile.History[len(st.Profile.History)-1]
		}
		out.say(checklistCompleteFor(st.Profile.Data[DisplayNameField], st.Profile.Verified, lastVisit))
		st.ActiveSlot = ""
		return
	}
	next := st.MissingFields[0]
	out.say(PromptFor(next))
	st.ActiveSlot = next
}

// actionEnd says goodbye. Terminal for the turn, not the call: the
// transport may still deliver more turns.
func (p *Pipeline) actionEnd(st *CallState, out *turnOutput) {
	out.say(farewellFor(st.Profile.Data[DisplayNameField]))
}
