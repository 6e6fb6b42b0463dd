package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// Timestamp is a point in time as reported by a game source: either an
// epoch-seconds number or a date string in any common layout.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts epoch seconds, epoch milliseconds or a date string.
// Strings without a zone are read as UTC.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = fromEpoch(n)
			return nil
		}
		parsed, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	t.Time = fromEpoch(n)
	return nil
}

// MarshalJSON writes RFC 3339, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func fromEpoch(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// Telemetry is the post-game payload submitted by a game source.
type Telemetry struct {
	GameID    ID                `json:"GameID"`
	GameStart Timestamp         `json:"GameStartTime"`
	GameEnd   Timestamp         `json:"GameEndTime"`
	Players   []PlayerTelemetry `json:"TotalPlayerList"`
	Teams     []TeamTelemetry   `json:"TeamInfoList"`
}

// PlayerTelemetry is one player's line in the game's result list.
type PlayerTelemetry struct {
	InGameID        ID      `json:"uId"`
	Name            string  `json:"playerName"`
	TeamID          ID      `json:"teamId"`
	TeamName        string  `json:"teamName"`
	Rank            int     `json:"rank"`
	Kill            int     `json:"killNum"`
	Damage          float64 `json:"damage"`
	SurvivalTime    float64 `json:"survivalTime"`
	Assists         int     `json:"assists"`
	Knockouts       int     `json:"knockouts"`
	Rescues         int     `json:"rescueTimes"`
	Headshots       int     `json:"headShotNum"`
	GrenadeKills    int     `json:"killNumByGrenade"`
	VehicleKills    int     `json:"killNumInVehicle"`
	KillDistance    float64 `json:"maxKillDistance"`
	MarchDistance   float64 `json:"marchDistance"`
	DriveDistance   float64 `json:"driveDistance"`
	SwimDistance    float64 `json:"swimDistance"`
	Heal            float64 `json:"heal"`
	HealthItemsUsed int     `json:"useHealItemNum"`
	BoostsUsed      int     `json:"useBoostItemNum"`
	AirdropsLooted  int     `json:"gotAirDropNum"`
	FragGrenades    int     `json:"useFragGrenadeNum"`
	SmokeGrenades   int     `json:"useSmokeGrenadeNum"`
	Molotovs        int     `json:"useBurnGrenadeNum"`
	FlashGrenades   int     `json:"useFlashGrenadeNum"`
	DamageTaken     float64 `json:"inDamage"`
	OutsideZoneTime float64 `json:"outsideBlueCircleTime"`
	KnockedDown     int     `json:"knockedDownNum"`
}

// TeamTelemetry is the game's own team summary. It is stored with the
// match for auditing; standings are derived from player lines.
type TeamTelemetry struct {
	TeamID        ID     `json:"teamId"`
	TeamName      string `json:"teamName"`
	Kill          int    `json:"killNum"`
	LiveMemberNum int    `json:"liveMemberNum"`
}

// Counters extracts the tracked statistics from a player line.
func (p PlayerTelemetry) Counters() Counters {
	return Counters{
		Kill:            p.Kill,
		Damage:          p.Damage,
		SurvivalTime:    p.SurvivalTime,
		Assists:         p.Assists,
		Knockouts:       p.Knockouts,
		Rescues:         p.Rescues,
		Headshots:       p.Headshots,
		GrenadeKills:    p.GrenadeKills,
		VehicleKills:    p.VehicleKills,
		KillDistance:    p.KillDistance,
		MarchDistance:   p.MarchDistance,
		DriveDistance:   p.DriveDistance,
		SwimDistance:    p.SwimDistance,
		Heal:            p.Heal,
		HealthItemsUsed: p.HealthItemsUsed,
		BoostsUsed:      p.BoostsUsed,
		AirdropsLooted:  p.AirdropsLooted,
		FragGrenades:    p.FragGrenades,
		SmokeGrenades:   p.SmokeGrenades,
		Molotovs:        p.Molotovs,
		FlashGrenades:   p.FlashGrenades,
		DamageTaken:     p.DamageTaken,
		OutsideZoneTime: p.OutsideZoneTime,
		KnockedDown:     p.KnockedDown,
	}
}

// ParseTelemetry decodes a raw payload. Decoding failures are Malformed.
func ParseTelemetry(data []byte) (Telemetry, error) {
	const op = "model.parse_telemetry"
	var t Telemetry
	if err := json.Unmarshal(data, &t); err != nil {
		return Telemetry{}, WrapKind(op, ErrMalformed, err)
	}
	if err := t.Validate(); err != nil {
		return Telemetry{}, err
	}
	return t, nil
}

// Validate checks the structural rules a payload must satisfy before any
// lookup happens: a game id, at least one player, unique non-blank player
// ids and no negative counters.
func (t Telemetry) Validate() error {
	const op = "model.validate_telemetry"
	if t.GameID.String() == "" {
		return WrapKind(op, ErrMalformed, errors.New("missing GameID"))
	}
	if len(t.Players) == 0 {
		return WrapKind(op, ErrMalformed, errors.New("TotalPlayerList is empty"))
	}
	if !t.GameStart.IsZero() && !t.GameEnd.IsZero() && t.GameEnd.Before(t.GameStart.Time) {
		return WrapKind(op, ErrMalformed, errors.New("GameEndTime precedes GameStartTime"))
	}
	seen := make(map[string]struct{}, len(t.Players))
	for i, p := range t.Players {
		id := p.InGameID.String()
		if id == "" {
			return WrapKind(op, ErrMalformed, fmt.Errorf("player %d has no uId", i))
		}
		if _, dup := seen[id]; dup {
			return WrapKind(op, ErrMalformed, fmt.Errorf("player %q listed twice", id))
		}
		seen[id] = struct{}{}
		if p.Rank < 0 {
			return WrapKind(op, ErrMalformed, fmt.Errorf("player %q has negative rank", id))
		}
		if name, neg := p.Counters().Negative(); neg {
			return WrapKind(op, ErrMalformed, fmt.Errorf("player %q has negative %s", id, name))
		}
	}
	return nil
}
