package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitPattern   = regexp.MustCompile(`(?i)\b(pcs|pc|each|ea|case|cases|ctn|carton|box|boxes|pack|pk|set|sets|roll|doz|dozen|kg|g|l|ltr|ml|btl|bottle|can|bag|tin|jar|tray)\b|個|本|箱|缶|袋|台|枚|束|組|ケース`)
	numberPattern = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)`)
	withUnit      = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)\s*(pcs|pc|each|ea|case|cases|ctn|carton|box|boxes|pack|pk|set|sets|roll|doz|dozen|kg|g|l|ltr|ml|btl|bottle|can|bag|tin|jar|tray|個|本|箱|缶|袋|台|枚|束|組|ケース)`)
	moneyStrip    = regexp.MustCompile(`(?i)[$¥€£]|usd|jpy|eur|gbp|sgd|hkd`)
)

type ParsedQty struct {
	Qty    *float64
	Unit   *string
	QtyRaw *string
}

func ParseQty(input string) ParsedQty {
	line := FoldWidth(strings.ReplaceAll(input, " ", " "))

	qtyRaw := ""
	qtyToken := ""

	wm := withUnit.FindAllStringSubmatch(line, -1)
	if len(wm) > 0 {
		last := wm[len(wm)-1]
		qtyRaw = strings.TrimSpace(last[1] + " " + last[2])
		qtyToken = strings.TrimSpace(last[1])
	} else {
		nm := numberPattern.FindAllStringSubmatch(line, -1)
		if len(nm) > 0 {
			last := nm[len(nm)-1]
			qtyRaw = strings.TrimSpace(last[1])
			qtyToken = strings.TrimSpace(last[1])
		}
	}

	var qtyPtr *float64
	if qtyToken != "" {
		norm := normalizeNumericToken(qtyToken)
		if parsed, err := strconv.ParseFloat(norm, 64); err == nil {
			qtyPtr = FloatPtr(parsed)
		}
	}

	var unitPtr *string
	if um := unitPattern.FindStringSubmatch(line); um != nil {
		u := normalizeUnit(um[0])
		unitPtr = &u
	}

	var qtyRawPtr *string
	if qtyRaw != "" {
		qtyRawPtr = &qtyRaw
	}

	return ParsedQty{Qty: qtyPtr, Unit: unitPtr, QtyRaw: qtyRawPtr}
}

// ParseMoney reads a price cell, tolerating currency symbols and thousands
// separators. Returns nil when no number survives.
func ParseMoney(input string) *float64 {
	s := FoldWidth(strings.TrimSpace(input))
	if s == "" {
		return nil
	}
	s = moneyStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	nm := numberPattern.FindStringSubmatch(" " + s)
	if nm == nil {
		return nil
	}
	norm := normalizeNumericToken(strings.TrimSpace(nm[1]))
	parsed, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return nil
	}
	return FloatPtr(parsed)
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "pc", "pcs":
		return "pcs"
	case "ea", "each":
		return "each"
	case "cases", "case", "ケース":
		return "case"
	case "ctn", "carton":
		return "ctn"
	case "boxes", "box", "箱":
		return "box"
	case "pk", "pack":
		return "pack"
	case "btl", "bottle", "本":
		return "btl"
	case "sets", "set", "組":
		return "set"
	case "dozen", "doz":
		return "doz"
	case "缶":
		return "can"
	case "袋":
		return "bag"
	case "個", "枚", "台", "束":
		return "pcs"
	default:
		return u
	}
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`).MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`).MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return strings.ReplaceAll(compact, ",", "")
}
