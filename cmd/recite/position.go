package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

// parsePosition parses "sura:aya"
func parsePosition(s string) (domain.Position, error) {
	suraStr, ayaStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return domain.Position{}, fmt.Errorf("position %q: want sura:aya", s)
	}

	sura, err := strconv.Atoi(suraStr)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position %q: bad sura: %w", s, err)
	}
	aya, err := strconv.Atoi(ayaStr)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position %q: bad aya: %w", s, err)
	}

	p := domain.Position{Sura: sura, Aya: aya}
	if !domain.ValidPosition(p) {
		return domain.Position{}, fmt.Errorf("position %s does not exist", p)
	}
	return p, nil
}

func parseRangeArgs(args []string) (domain.Position, domain.Position, error) {
	from, err := parsePosition(args[0])
	if err != nil {
		return domain.Position{}, domain.Position{}, err
	}
	to, err := parsePosition(args[1])
	if err != nil {
		return domain.Position{}, domain.Position{}, err
	}
	return from, to, nil
}
