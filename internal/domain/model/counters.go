package model

// Counters is the set of per-match statistics tracked for players and
// teams. Every field sums across matches except KillDistance, which keeps
// the maximum.
type Counters struct {
	Kill            int     `json:"kill"`
	Damage          float64 `json:"damage"`
	SurvivalTime    float64 `json:"survivalTime"`
	Assists         int     `json:"assists"`
	Knockouts       int     `json:"knockouts"`
	Rescues         int     `json:"rescues"`
	Headshots       int     `json:"headshots"`
	GrenadeKills    int     `json:"grenadeKills"`
	VehicleKills    int     `json:"vehicleKills"`
	KillDistance    float64 `json:"killDistance"`
	MarchDistance   float64 `json:"marchDistance"`
	DriveDistance   float64 `json:"driveDistance"`
	SwimDistance    float64 `json:"swimDistance"`
	Heal            float64 `json:"heal"`
	HealthItemsUsed int     `json:"healthItemsUsed"`
	BoostsUsed      int     `json:"boostsUsed"`
	AirdropsLooted  int     `json:"airdropsLooted"`
	FragGrenades    int     `json:"fragGrenades"`
	SmokeGrenades   int     `json:"smokeGrenades"`
	Molotovs        int     `json:"molotovs"`
	FlashGrenades   int     `json:"flashGrenades"`
	DamageTaken     float64 `json:"damageTaken"`
	OutsideZoneTime float64 `json:"outsideZoneTime"`
	KnockedDown     int     `json:"knockedDown"`
}

// Add folds o into c.
func (c *Counters) Add(o Counters) {
	c.Kill += o.Kill
	c.Damage += o.Damage
	c.SurvivalTime += o.SurvivalTime
	c.Assists += o.Assists
	c.Knockouts += o.Knockouts
	c.Rescues += o.Rescues
	c.Headshots += o.Headshots
	c.GrenadeKills += o.GrenadeKills
	c.VehicleKills += o.VehicleKills
	c.KillDistance = max(c.KillDistance, o.KillDistance)
	c.MarchDistance += o.MarchDistance
	c.DriveDistance += o.DriveDistance
	c.SwimDistance += o.SwimDistance
	c.Heal += o.Heal
	c.HealthItemsUsed += o.HealthItemsUsed
	c.BoostsUsed += o.BoostsUsed
	c.AirdropsLooted += o.AirdropsLooted
	c.FragGrenades += o.FragGrenades
	c.SmokeGrenades += o.SmokeGrenades
	c.Molotovs += o.Molotovs
	c.FlashGrenades += o.FlashGrenades
	c.DamageTaken += o.DamageTaken
	c.OutsideZoneTime += o.OutsideZoneTime
	c.KnockedDown += o.KnockedDown
}

// Negative reports the name of the first counter holding a negative value.
func (c Counters) Negative() (string, bool) {
	ints := []struct {
		name string
		v    int
	}{
		{"kill", c.Kill}, {"assists", c.Assists}, {"knockouts", c.Knockouts},
		{"rescues", c.Rescues}, {"headshots", c.Headshots}, {"grenadeKills", c.GrenadeKills},
		{"vehicleKills", c.VehicleKills}, {"healthItemsUsed", c.HealthItemsUsed},
		{"boostsUsed", c.BoostsUsed}, {"airdropsLooted", c.AirdropsLooted},
		{"fragGrenades", c.FragGrenades}, {"smokeGrenades", c.SmokeGrenades},
		{"molotovs", c.Molotovs}, {"flashGrenades", c.FlashGrenades},
		{"knockedDown", c.KnockedDown},
	}
	for _, f := range ints {
		if f.v < 0 {
			return f.name, true
		}
	}
	floats := []struct {
		name string
		v    float64
	}{
		{"damage", c.Damage}, {"survivalTime", c.SurvivalTime},
		{"killDistance", c.KillDistance}, {"marchDistance", c.MarchDistance},
		{"driveDistance", c.DriveDistance}, {"swimDistance", c.SwimDistance},
		{"heal", c.Heal}, {"damageTaken", c.DamageTaken},
		{"outsideZoneTime", c.OutsideZoneTime},
	}
	for _, f := range floats {
		if f.v < 0 {
			return f.name, true
		}
	}
	return "", false
}
