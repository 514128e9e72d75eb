package main

// WeaponKind names a weapon. The base weapon is always WeaponBasic;
// the others are only held while a pickup timer runs.
type WeaponKind string

const (
	WeaponBasic  WeaponKind = "basic"
	WeaponRapid  WeaponKind = "rapid"
	WeaponHeavy  WeaponKind = "heavy"
	WeaponSpread WeaponKind = "spread"
	WeaponBounce WeaponKind = "bounce"
)

// WeaponDef holds the stats for a weapon kind
type WeaponDef struct {
	Speed   float64 // pixels per tick
	Damage  int
	Count   int     // projectiles per shot
	Spread  float64 // degrees between adjacent projectiles
	Bounces int     // wall reflections before the projectile is discarded
}

var Weapons = map[WeaponKind]WeaponDef{
	WeaponBasic:  {Speed: 7, Damage: 1, Count: 1},
	WeaponRapid:  {Speed: 12, Damage: 1, Count: 1},
	WeaponHeavy:  {Speed: 5, Damage: 2, Count: 1},
	WeaponSpread: {Speed: 7, Damage: 1, Count: 3, Spread: 14},
	WeaponBounce: {Speed: 7, Damage: 1, Count: 1, Bounces: 3},
}

// PowerupPool is what pickups draw from, uniformly
var PowerupPool = []WeaponKind{WeaponRapid, WeaponHeavy, WeaponSpread, WeaponBounce}

// GetWeaponDef returns the definition for a weapon kind
func GetWeaponDef(kind WeaponKind) WeaponDef {
	if def, ok := Weapons[kind]; ok {
		return def
	}
	return Weapons[WeaponBasic]
}

// spreadAngles returns count angles in degrees centred on base, step apart
func spreadAngles(base float64, count int, step float64) []float64 {
	if count < 1 {
		count = 1
	}
	out := make([]float64, count)
	mid := float64(count-1) / 2
	for i := range out {
		out[i] = base + (float64(i)-mid)*step
	}
	return out
}
