// Command seed populates a fresh database with demonstration sensors and a
// day of plausible readings so the dashboard has something to show.
package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/aquasense/aquasense/internal/store"
)

type sensorSpec struct {
	name     string
	location string

	tempBase, tempSpread           float64
	phBase, phSpread               float64
	turbidityBase, turbiditySpread float64
	oxygenBase, oxygenSpread       float64
	conductBase, conductSpread     float64
	bacterialBase, bacterialSpread float64
	viralBase, viralSpread         float64
}

var sensorSpecs = []sensorSpec{
	{
		name: "Wastewater Sensor - Downtown", location: "Central Treatment Plant",
		tempBase: 18, tempSpread: 4, phBase: 6.5, phSpread: 1.5,
		turbidityBase: 10, turbiditySpread: 20, oxygenBase: 5, oxygenSpread: 3,
		conductBase: 500, conductSpread: 200, bacterialBase: 1000, bacterialSpread: 5000,
		viralBase: 50, viralSpread: 200,
	},
	{
		name: "Wastewater Sensor - North", location: "North Treatment Plant",
		tempBase: 17, tempSpread: 5, phBase: 6.8, phSpread: 1.2,
		turbidityBase: 12, turbiditySpread: 18, oxygenBase: 4.5, oxygenSpread: 3.5,
		conductBase: 450, conductSpread: 250, bacterialBase: 800, bacterialSpread: 4000,
		viralBase: 40, viralSpread: 180,
	},
	{
		name: "Wastewater Sensor - South", location: "South Treatment Plant",
		tempBase: 19, tempSpread: 3, phBase: 6.6, phSpread: 1.4,
		turbidityBase: 11, turbiditySpread: 19, oxygenBase: 5.5, oxygenSpread: 2.5,
		conductBase: 520, conductSpread: 180, bacterialBase: 1200, bacterialSpread: 4500,
		viralBase: 60, viralSpread: 190,
	},
}

func main() {
	var (
		dbPath   = flag.String("db", "aquasense.db", "SQLite database path")
		hours    = flag.Int("hours", 24, "Hours of historical readings to generate")
		interval = flag.Duration("interval", time.Hour, "Spacing between readings")
	)
	flag.Parse()

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()
	total := 0

	for _, spec := range sensorSpecs {
		sensor, err := st.CreateSensor(spec.name, spec.location, "wastewater", "active")
		if err != nil {
			log.Fatal(err)
		}
		step := *interval
		for i := 0; i < *hours; i++ {
			input := spec.reading(rng, now.Add(-time.Duration(i)*step))
			if _, err := st.CreateReading(sensor.ID, input); err != nil {
				log.Fatal(err)
			}
			total++
		}
		log.Printf("seed sensor_created id=%s name=%q readings=%d", sensor.ID, spec.name, *hours)
	}

	log.Printf("seed done sensors=%d readings=%d db=%s", len(sensorSpecs), total, *dbPath)
}

func (s sensorSpec) reading(rng *rand.Rand, ts time.Time) store.ReadingInput {
	return store.ReadingInput{
		Timestamp:       ts,
		Temperature:     jitter(rng, s.tempBase, s.tempSpread),
		PH:              jitter(rng, s.phBase, s.phSpread),
		Turbidity:       jitter(rng, s.turbidityBase, s.turbiditySpread),
		DissolvedOxygen: jitter(rng, s.oxygenBase, s.oxygenSpread),
		Conductivity:    jitter(rng, s.conductBase, s.conductSpread),
		BacterialCount:  jitter(rng, s.bacterialBase, s.bacterialSpread),
		ViralLoad:       jitter(rng, s.viralBase, s.viralSpread),
	}
}

func jitter(rng *rand.Rand, base, spread float64) *float64 {
	v := base + rng.Float64()*spread
	return &v
}
