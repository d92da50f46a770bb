package pipeline

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tormoder/fit"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
)

// fitFallbackDate anchors sprints whose session date is unknown.
var fitFallbackDate = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// lapRest separates consecutive sprints of one session on the FIT timeline.
const lapRest = 2 * time.Minute

// fitTime maps a result's session date onto a wall clock, noon UTC of that day.
func fitTime(date string) time.Time {
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Add(12 * time.Hour)
	}
	return fitFallbackDate
}

type fitLap struct {
	start    time.Time
	duration time.Duration
	distance int
}

// planLaps places each sprint on a synthetic timeline: sprints sharing a
// date run back to back from noon, separated by lapRest. Laps come out in
// chronological order.
func planLaps(results []sprintzero.Result) []fitLap {
	next := map[string]time.Time{}
	laps := make([]fitLap, 0, len(results))
	for _, r := range results {
		start, ok := next[r.Date]
		if !ok {
			start = fitTime(r.Date)
		}
		secs := math.Max(r.Detection.FinalDuration, 0)
		dur := time.Duration(math.Round(secs*1000)) * time.Millisecond
		laps = append(laps, fitLap{start: start, duration: dur, distance: r.Distance})
		next[r.Date] = start.Add(dur + lapRest)
	}
	sort.SliceStable(laps, func(i, j int) bool { return laps[i].start.Before(laps[j].start) })
	return laps
}

// encodeSprintFIT renders the analyzed sprints as a FIT activity with one
// lap per sprint, timed from detected start to the final end time.
func encodeSprintFIT(results []sprintzero.Result) ([]byte, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no sprints to encode")
	}

	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		return nil, fmt.Errorf("new fit file: %w", err)
	}
	activity, err := file.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity accessor: %w", err)
	}

	laps := planLaps(results)
	first := laps[0].start
	var (
		last     time.Time
		timerMS  uint32
		distance uint32 // cumulative, cm
	)
	for _, l := range laps {
		end := l.start.Add(l.duration)
		if end.After(last) {
			last = end
		}
		ms := uint32(l.duration.Milliseconds())
		cm := uint32(l.distance * 100)

		startEv := fit.NewEventMsg()
		startEv.Timestamp = l.start
		startEv.Event = fit.EventTimer
		startEv.EventType = fit.EventTypeStart
		activity.Events = append(activity.Events, startEv)

		rec := fit.NewRecordMsg()
		rec.Timestamp = l.start
		rec.Distance = distance
		activity.Records = append(activity.Records, rec)

		distance += cm
		rec = fit.NewRecordMsg()
		rec.Timestamp = end
		rec.Distance = distance
		activity.Records = append(activity.Records, rec)

		stopEv := fit.NewEventMsg()
		stopEv.Timestamp = end
		stopEv.Event = fit.EventTimer
		stopEv.EventType = fit.EventTypeStop
		activity.Events = append(activity.Events, stopEv)

		lap := fit.NewLapMsg()
		lap.Timestamp = end
		lap.StartTime = l.start
		lap.TotalElapsedTime = ms
		lap.TotalTimerTime = ms
		lap.TotalDistance = cm
		lap.Event = fit.EventLap
		lap.EventType = fit.EventTypeStop
		lap.Sport = fit.SportRunning
		activity.Laps = append(activity.Laps, lap)

		timerMS += ms
	}

	elapsedMS := uint32(last.Sub(first).Milliseconds())
	session := fit.NewSessionMsg()
	session.Timestamp = last
	session.StartTime = first
	session.TotalElapsedTime = elapsedMS
	session.TotalTimerTime = timerMS
	session.TotalDistance = distance
	session.Sport = fit.SportRunning
	session.NumLaps = uint16(len(laps))
	session.Event = fit.EventSession
	session.EventType = fit.EventTypeStop
	activity.Sessions = append(activity.Sessions, session)

	activity.Activity = fit.NewActivityMsg()
	activity.Activity.Timestamp = last
	activity.Activity.TotalTimerTime = timerMS
	activity.Activity.NumSessions = 1
	activity.Activity.Event = fit.EventActivity
	activity.Activity.EventType = fit.EventTypeStop

	file.FileId.TimeCreated = first

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode fit: %w", err)
	}
	return buf.Bytes(), nil
}
