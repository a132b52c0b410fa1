package sink

import (
	"log"
	"runtime/debug"

	"httpmonitor/internal/analytics"
	"httpmonitor/internal/models"
)

// Multi рассылает отчет нескольким получателям.
// Паника одного получателя не мешает остальным и не роняет планировщик.
type Multi struct {
	sinks []analytics.Sink
}

// NewMulti создает рассылку, nil-получатели пропускаются
func NewMulti(sinks ...analytics.Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Report передает отчет каждому получателю по очереди
func (m *Multi) Report(r models.Report) {
	for _, s := range m.sinks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("Sink %T panicked: %+v\n%s", s, p, debug.Stack())
				}
			}()
			s.Report(r)
		}()
	}
}
