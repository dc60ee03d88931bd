package mirror

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// applyTimeline folds timeline events in order. Messages are decoded, state
// events carried in the timeline go through the state machine, anything else
// is only marked as processed.
func (r *Room) applyTimeline(events []*Event) {
	for _, ev := range events {
		r.applyTimelineEvent(ev)
	}
}

func (r *Room) applyTimelineEvent(ev *Event) {
	done, err := r.dedup.IsProcessed(ev)
	if err != nil {
		logger.Debugf("skipping timeline event in %s: %s", r.id, err)
		return
	}

	if done {
		eventsDuplicate.Inc()
		return
	}

	if logger.Logger.IsLevelEnabled(logrus.TraceLevel) {
		logger.Tracef("timeline event %s", spew.Sdump(ev))
	}

	kind := kindOf(ev.Type)

	switch {
	case kind == KindMessage:
		if err := r.handleMessage(ev); err != nil {
			logger.Debugf("skipping message %s in %s: %s", ev.ID, r.id, err)
		}
	case ev.IsState():
		r.applyStateEvent(ev)
		return
	}

	r.dedup.Mark(ev) //nolint:errcheck
	eventsProcessed.WithLabelValues(kind.String()).Inc()
}

func (r *Room) handleMessage(ev *Event) error {
	if !validUserID(ev.Sender) {
		return errMalformed
	}

	var content messageContent
	if err := decodeContent(ev, &content); err != nil {
		return err
	}

	sender := r.users.Resolve(ev.Sender)
	r.emit(&MessageEvent{Room: r, Message: newMessage(sender, ev, &content)})

	return nil
}
