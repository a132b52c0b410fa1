package sink

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"httpmonitor/internal/models"
)

const sep = "_________________________________"

// Console печатает топ секций и алерты в writer
type Console struct {
	mu          sync.Mutex
	output      io.Writer
	topSections int
}

// NewConsole создает консольный вывод с ограничением топа секций
func NewConsole(output io.Writer, topSections int) (*Console, error) {
	if output == nil {
		return nil, fmt.Errorf("output can't be nil")
	}
	if topSections < 1 {
		return nil, fmt.Errorf("topSections should be at least 1")
	}
	return &Console{output: output, topSections: topSections}, nil
}

// Report печатает отчет тика
func (c *Console) Report(r models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.Alert != nil {
		c.printAlert(*r.Alert)
	}
	if len(r.Sections) == 0 {
		_, _ = fmt.Fprintf(c.output, "| %s Section TOP: no traffic; rolling traffic %d bytes\n",
			r.GeneratedAt.Format(time.DateTime), r.Traffic)
		return
	}
	c.printSectionTop(r)
}

func (c *Console) printSectionTop(r models.Report) {
	sections := r.Sections
	if len(sections) > c.topSections {
		sections = sections[:c.topSections]
	}

	_, _ = fmt.Fprintf(c.output, "|\n| Section TOP @ %s; rolling traffic %d bytes\n",
		r.GeneratedAt.Format(time.DateTime), r.Traffic)
	w := tabwriter.NewWriter(c.output, 10, 0, 1, ' ', tabwriter.TabIndent)
	_, _ = fmt.Fprintf(w, "|%s\t%s\t%s\n", sep, sep, sep)
	_, _ = fmt.Fprintf(w, "| Section\t Hits\t Bytes\n")
	_, _ = fmt.Fprintf(w, "|%s\t%s\t%s\n", sep, sep, sep)
	for _, s := range sections {
		_, _ = fmt.Fprintf(w, "| %v\t %d\t %d\n", s.Section, s.Hits, s.TotalBytes)
	}
	_, _ = fmt.Fprintf(w, "|%s\t%s\t%s\n", sep, sep, sep)
	_ = w.Flush()
}

func (c *Console) printAlert(a models.AlertEvent) {
	_, _ = fmt.Fprintln(c.output, FormatAlert(a))
}

// FormatAlert текст алерта для вывода и логов
func FormatAlert(a models.AlertEvent) string {
	at := a.TriggeredAt.Format(time.DateTime)
	switch a.Status {
	case models.OverThreshold:
		return fmt.Sprintf("[ALERT] High traffic generated an alert - traffic = %d bytes, triggered at %s", a.Traffic, at)
	case models.UnderThreshold:
		return fmt.Sprintf("[RESOLVED] Traffic back to normal - traffic = %d bytes, recovered at %s", a.Traffic, at)
	}
	return fmt.Sprintf("[%v] traffic = %d bytes at %s", a.Status, a.Traffic, at)
}
