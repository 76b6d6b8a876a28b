package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/V4T54L/szmessage/pkg/typedef"
	"github.com/google/uuid"
)

// corruption turns a valid encoded envelope into one a decoder must reject.
type corruption struct {
	kind  string
	apply func(obj map[string]json.RawMessage)
}

var corruptions = []corruption{
	{"missing_required_field", func(obj map[string]json.RawMessage) { delete(obj, "details") }},
	{"wrong_kind", func(obj map[string]json.RawMessage) { obj["duration"] = json.RawMessage(`"199045"`) }},
	{"out_of_range", func(obj map[string]json.RawMessage) { obj["duration"] = json.RawMessage(`4294967296`) }},
	{"bad_timestamp", func(obj map[string]json.RawMessage) { obj["time"] = json.RawMessage(`"2023-04-07 19:10:21 +0000 UTC"`) }},
	{"wrong_kind", func(obj map[string]json.RawMessage) { obj["errors"] = json.RawMessage(`"not a list"`) }},
}

type generator struct {
	rng     *rand.Rand
	badRate float64
	zones   []*time.Location
}

func newGenerator(seed uint64, badRate float64) *generator {
	return &generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		badRate: badRate,
		zones: []*time.Location{
			time.UTC,
			time.FixedZone("", -4*60*60),
			time.FixedZone("", 5*60*60+30*60),
		},
	}
}

// next returns one line and the rejection kind it should produce, or ""
// when the line is valid.
func (g *generator) next(now time.Time) ([]byte, string, error) {
	msg, err := g.message(now)
	if err != nil {
		return nil, "", err
	}
	data, err := typedef.Encode(msg)
	if err != nil {
		return nil, "", err
	}
	if g.rng.Float64() >= g.badRate {
		return data, "", nil
	}

	if g.rng.IntN(len(corruptions)+1) == len(corruptions) {
		return data[:len(data)/2], "malformed_json", nil
	}
	c := corruptions[g.rng.IntN(len(corruptions))]
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, "", err
	}
	c.apply(obj)
	corrupted, err := json.Marshal(obj)
	return corrupted, c.kind, err
}

func (g *generator) message(now time.Time) (typedef.SenzingMessage, error) {
	level := typedef.AllLevels[g.rng.IntN(len(typedef.AllLevels))]
	code := 1 + g.rng.IntN(9999)

	count := 1 + g.rng.IntN(3)
	details := make(typedef.Details, 0, count)
	for i := 1; i <= count; i++ {
		n := g.rng.IntN(100000)
		raw, err := typedef.NewValueRaw(n)
		if err != nil {
			return typedef.SenzingMessage{}, err
		}
		details = append(details, typedef.Detail{
			Key:      fmt.Sprintf("DETAIL_%d", i),
			Position: int32(i),
			Type:     "int",
			Value:    fmt.Sprint(n),
			ValueRaw: raw,
		})
	}

	var errs typedef.Errors
	if level.Slog() >= typedef.SlogLevelError {
		errs = typedef.Errors{fmt.Sprintf("%04dE|Generated failure", code)}
	}

	return typedef.SenzingMessage{
		ID:       fmt.Sprintf("SZSDK9999%04d", code),
		Level:    level,
		Time:     now.In(g.zones[g.rng.IntN(len(g.zones))]),
		Duration: int32(g.rng.IntN(1_000_000)),
		Location: "In msggen at generator.go",
		Status:   "",
		Text:     "generated message " + uuid.NewString(),
		Details:  details,
		Errors:   errs,
	}, nil
}
