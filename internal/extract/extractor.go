// Package extract derives structured booking fields from a free-text call
// transcript. Extraction is heuristic and total: a rule that finds nothing
// yields the NA sentinel for its field, never an error.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
)

// Fields is the best-effort structured view of one transcript.
type Fields struct {
	CustomerName string
	RoomName     string
	CheckInDate  string
	CheckOutDate string
	GuestCount   string
	PhoneNumber  string
}

// roomTypes are the known room-type phrases, in match-priority order.
// Matched as lowercase substrings; the first hit wins.
var roomTypes = []string{
	"executive room",
	"deluxe room",
	"family suite",
	"studio room",
	"classic room",
}

// digitWords maps spoken digits to their numeral. Words outside this table
// never contribute to a phone number.
var digitWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
}

// countWords is the spoken-number fallback for guest counts. Counts above
// ten are only recognized as digits.
var countWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
}

const datePhrase = `(?:the )?(?:\d{1,2}(?:st|nd|rd|th)? (?:of )?[a-z]+(?:,? \d{4})?|[a-z]+ \d{1,2}(?:st|nd|rd|th)?(?:,? \d{4})?|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?)`

var (
	nameRe     = regexp.MustCompile(`(?:my|full) name is ([a-z]+(?: [a-z]+)*)`)
	checkInRe  = regexp.MustCompile(`check[\s-]*in on (` + datePhrase + `)`)
	checkOutRe = regexp.MustCompile(`check[\s-]*out on (` + datePhrase + `)`)
	phoneRunRe = regexp.MustCompile(`(?:\b(?:zero|one|two|three|four|five|six|seven|eight|nine)\b[\s,.\-]*){10,}`)
	wordRe     = regexp.MustCompile(`[a-z]+`)
	guestNumRe = regexp.MustCompile(`(\d+)\s*guests?\b`)
	guestWdRe  = regexp.MustCompile(`\b(one|two|three|four|five|six|seven|eight|nine|ten)\s+guests?\b`)
	ordinalRe  = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)`)
	yearRe     = regexp.MustCompile(`\b\d{4}\b`)
)

// Extractor runs the rule chain. Now supplies the year assumed for date
// phrases that carry none; it exists so tests are deterministic.
type Extractor struct {
	Now func() time.Time
}

func New() *Extractor {
	return &Extractor{Now: time.Now}
}

// Extract runs every rule against the transcript and merges the results.
// Rules are independent; each degrades to NA on its own.
func (x *Extractor) Extract(transcript string) Fields {
	t := strings.ToLower(transcript)

	return Fields{
		CustomerName: orNA(x.customerName(t)),
		RoomName:     orNA(x.roomName(t)),
		CheckInDate:  orNA(x.datePhrase(t, checkInRe)),
		CheckOutDate: orNA(x.datePhrase(t, checkOutRe)),
		GuestCount:   orNA(x.guestCount(t)),
		PhoneNumber:  orNA(x.phoneNumber(t)),
	}
}

func (x *Extractor) roomName(t string) string {
	for _, room := range roomTypes {
		if strings.Contains(t, room) {
			return titleCase(room)
		}
	}
	return ""
}

func (x *Extractor) customerName(t string) string {
	m := nameRe.FindStringSubmatch(t)
	if m == nil {
		return ""
	}
	return titleCase(strings.TrimSpace(m[1]))
}

// phoneNumber matches the longest run of ten or more spoken digit-words and
// maps each to its numeral. A run that yields fewer than ten digits is
// discarded rather than logged as a partial number.
func (x *Extractor) phoneNumber(t string) string {
	var best string
	for _, run := range phoneRunRe.FindAllString(t, -1) {
		if len(run) > len(best) {
			best = run
		}
	}
	if best == "" {
		return ""
	}

	var digits strings.Builder
	for _, w := range wordRe.FindAllString(best, -1) {
		digits.WriteString(digitWords[w])
	}
	if digits.Len() < 10 {
		return ""
	}
	return digits.String()
}

// datePhrase captures the phrase after "check in on"/"check out on" and
// parses it best-effort. A captured phrase that fails to parse is kept
// verbatim — never silently blanked.
func (x *Extractor) datePhrase(t string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(t)
	if m == nil {
		return ""
	}
	phrase := strings.TrimSpace(m[1])

	candidate := ordinalRe.ReplaceAllString(phrase, "$1")
	candidate = strings.TrimPrefix(candidate, "the ")
	candidate = strings.Replace(candidate, " of ", " ", 1)
	candidate = titleCase(candidate)
	if !yearRe.MatchString(candidate) {
		// "march 5" parses as "March 5, 2025"; "5 march" as "5 March 2025".
		if candidate[0] >= '0' && candidate[0] <= '9' {
			candidate = fmt.Sprintf("%s %d", candidate, x.Now().Year())
		} else {
			candidate = fmt.Sprintf("%s, %d", candidate, x.Now().Year())
		}
	}

	parsed, err := dateparse.ParseAny(candidate)
	if err != nil {
		return phrase
	}
	return parsed.Format("2006-01-02")
}

func (x *Extractor) guestCount(t string) string {
	if m := guestNumRe.FindStringSubmatch(t); m != nil {
		return m[1]
	}
	if m := guestWdRe.FindStringSubmatch(t); m != nil {
		return countWords[m[1]]
	}
	return ""
}

func orNA(s string) string {
	if s == "" {
		return events.NA
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
