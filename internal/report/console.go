// Package report turns scan events into console lines and result records.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"zonegraph/internal/domain"
	"zonegraph/internal/service"
)

// Console prints scan progress in the classic line format:
//
//	ADD: <domain> AND <nameserver>
//	ADD vulnerable DNS: <domain>
//	Domain exists: <domain>
//	Finished: <domain>
type Console struct {
	w       io.Writer
	verbose bool

	info    func(a ...interface{}) string
	success func(a ...interface{}) string
	warn    func(a ...interface{}) string
	fail    func(a ...interface{}) string
}

// NewConsole creates a console reporter writing to w. Verbose also prints
// failed domains and per name server errors.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{
		w:       w,
		verbose: verbose,
		info:    color.New(color.FgBlue).SprintFunc(),
		success: color.New(color.FgGreen, color.Bold).SprintFunc(),
		warn:    color.New(color.FgYellow).SprintFunc(),
		fail:    color.New(color.FgRed).SprintFunc(),
	}
}

// Handle prints the line for one event
func (c *Console) Handle(event service.Event) {
	switch event.Type {
	case service.EventDomainStarted:
		if c.verbose {
			fmt.Fprintf(c.w, "%s %s\n", c.info("Scanning:"), event.Domain)
		}
	case service.EventNameServerLinked:
		fmt.Fprintf(c.w, "%s %s AND %s\n", c.info("ADD:"), event.Domain, event.NameServer)
	case service.EventVulnerable:
		fmt.Fprintf(c.w, "%s %s\n", c.success("ADD vulnerable DNS:"), event.Domain)
	case service.EventDomainSkipped:
		fmt.Fprintf(c.w, "%s %s\n", c.warn("Domain exists:"), event.Domain)
	case service.EventDomainFinished:
		result, ok := event.Payload.(*domain.DomainResult)
		if !ok {
			return
		}
		c.finished(result)
	}
}

func (c *Console) finished(result *domain.DomainResult) {
	switch result.Status {
	case domain.StatusScanned:
		fmt.Fprintf(c.w, "Finished: %s\n", result.Domain)
		if c.verbose {
			for _, ns := range result.NameServers {
				for _, e := range ns.Errors {
					fmt.Fprintf(c.w, "  %s %s: %s\n", c.fail("[-]"), ns.Name, e.Message)
				}
			}
		}
	case domain.StatusFailed:
		if !c.verbose {
			return
		}
		msg := ""
		if len(result.Errors) > 0 {
			msg = result.Errors[0].Message
		}
		fmt.Fprintf(c.w, "%s %s: %s\n", c.fail("Failed:"), result.Domain, msg)
	}
}

// PrintSummary prints the totals of a run
func (c *Console) PrintSummary(summary *service.RunSummary) {
	fmt.Fprintf(c.w, "\n%s %d domains in %s: %d scanned, %d skipped, %d failed\n",
		c.info("[*]"), summary.Total, summary.Duration().Round(time.Millisecond),
		summary.Scanned, summary.Skipped, summary.Failed)

	if summary.Vulnerable == 0 {
		fmt.Fprintf(c.w, "%s no zone transfers allowed\n", c.info("[*]"))
		return
	}

	fmt.Fprintf(c.w, "%s %d vulnerable domains, %d vulnerable name server pairs\n",
		c.success("[+]"), summary.Vulnerable, summary.VulnerablePairs)

	var lines []string
	for _, r := range summary.Results {
		if r == nil {
			continue
		}
		for _, ns := range r.VulnerableNameServers() {
			lines = append(lines, fmt.Sprintf("%s @ %s", r.Domain, ns))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintf(c.w, "    %s\n", l)
	}
}

// PrintGraphCounts prints node and edge totals per kind
func (c *Console) PrintGraphCounts(fragment *domain.GraphFragment) {
	labels := fragment.CountByLabel()
	fmt.Fprintf(c.w, "%s graph:", c.info("[*]"))
	for _, l := range domain.Labels() {
		fmt.Fprintf(c.w, " %s=%d", l, labels[l])
	}
	types := fragment.CountByType()
	for _, t := range []domain.RelType{domain.RelKnows, domain.RelHostedBy, domain.RelFrom, domain.RelVulnerable} {
		fmt.Fprintf(c.w, " %s=%d", t, types[t])
	}
	fmt.Fprintln(c.w)
}
