package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cardhub/pkg/models"
	"cardhub/pkg/textutil"
)

var powerRe = regexp.MustCompile(`power\s+(\d+)`)

// parseCardRow maps one faction-page paragraph to a Card. Rows follow
// one of two layouts:
//
//	Name - power N - effect      (minion)
//	Name - effect                (action)
//
// The card name comes from the row's anchor id, not from the text, so
// effects that mention other card names cannot confuse the mapping.
func parseCardRow(anchorID, text, factionName, sourceURL string) (models.Card, error) {
	name := textutil.CleanText(strings.ReplaceAll(anchorID, "_", " "))
	if name == "" {
		return models.Card{}, fmt.Errorf("empty card anchor")
	}

	parts := strings.Split(text, " - ")

	if isMinionText(text) {
		power, ok := powerFromText(text)
		if !ok {
			return models.Card{}, fmt.Errorf("minion %s: no power value", name)
		}
		effect := textutil.StripFAQ(textutil.CleanText(parts[2]))
		if effect == "" {
			return models.Card{}, fmt.Errorf("minion %s: empty effect", name)
		}
		return models.Card{
			FactionName: factionName,
			Name:        name,
			Type:        models.CardMinion,
			Power:       &power,
			Effect:      effect,
			SourceURL:   sourceURL,
		}, nil
	}

	if len(parts) < 2 {
		return models.Card{}, fmt.Errorf("card %s: unrecognized row layout", name)
	}
	effect := textutil.StripFAQ(textutil.CleanText(strings.Join(parts[1:], " - ")))
	if effect == "" {
		return models.Card{}, fmt.Errorf("action %s: empty effect", name)
	}
	return models.Card{
		FactionName: factionName,
		Name:        name,
		Type:        models.CardAction,
		Effect:      effect,
		SourceURL:   sourceURL,
	}, nil
}

// isMinionText reports whether a card row has the three-part minion
// layout with a power clause in the middle.
func isMinionText(text string) bool {
	return powerRe.MatchString(strings.ToLower(text)) && len(strings.Split(text, " - ")) == 3
}

func powerFromText(text string) (int, bool) {
	m := powerRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseBaseRow maps one Bases-page list item to a Base. Rows look like:
//
//	Name - breakpoint N - VPs: a b c - effect
func parseBaseRow(text, sourceURL string) (models.Base, error) {
	parts := strings.Split(text, " - ")
	if len(parts) < 4 {
		return models.Base{}, fmt.Errorf("unrecognized base row layout")
	}

	name := textutil.CleanText(parts[0])
	if name == "" {
		return models.Base{}, fmt.Errorf("empty base name")
	}

	bpText := strings.TrimSpace(strings.Replace(parts[1], "breakpoint", "", 1))
	breakpoint, err := strconv.Atoi(bpText)
	if err != nil {
		return models.Base{}, fmt.Errorf("base %s: bad breakpoint %q", name, bpText)
	}

	vpsText := strings.TrimSpace(strings.Replace(parts[2], "VPs:", "", 1))
	vps := strings.Fields(vpsText)
	if len(vps) < 3 {
		return models.Base{}, fmt.Errorf("base %s: expected 3 victory point values, got %q", name, vpsText)
	}
	places := make([]int, 3)
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(vps[i])
		if err != nil {
			return models.Base{}, fmt.Errorf("base %s: bad victory point value %q", name, vps[i])
		}
		places[i] = n
	}

	effect := textutil.StripFAQ(textutil.CleanText(strings.Join(parts[3:], " - ")))

	return models.Base{
		Name:        name,
		Breakpoint:  breakpoint,
		FirstPlace:  places[0],
		SecondPlace: places[1],
		ThirdPlace:  places[2],
		Effect:      effect,
		SourceURL:   sourceURL,
	}, nil
}

// looksLikeBaseRow reports whether a list item plausibly carries base
// data at all, as opposed to wiki navigation.
func looksLikeBaseRow(text string) bool {
	return strings.Contains(strings.ToLower(text), "breakpoint")
}

// factionPage maps a faction display name to its wiki page name. The
// Cthulhu factions all live on one shared page.
func factionPage(name string) string {
	if strings.Contains(strings.ToLower(name), "cthulhu") {
		return "Minions_of_Cthulhu"
	}
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}
