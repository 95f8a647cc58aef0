// attsim runs the attitude fusion pipeline against simulated sensors and
// optionally serves fused attitude snapshots to websocket viewers.
package main

import (
	"flag"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/goinertial/goattitude/ahrs"
	"github.com/goinertial/goattitude/ahrsweb"
	"github.com/goinertial/goattitude/gravity"
	"github.com/goinertial/goattitude/sensors"
)

func main() {
	var (
		addr      = flag.String("addr", fmt.Sprintf(":%d", ahrsweb.Port), "websocket listen address, empty to disable")
		duration  = flag.Duration("duration", 30*time.Second, "how long to run the simulation")
		period    = flag.Duration("period", 10*time.Millisecond, "sensor sampling period")
		rate      = flag.Float64("rate", 10*math.Pi/180, "simulated yaw rate, rad/s")
		accNoise  = flag.Float64("acc-noise", 0.05, "accelerometer noise sigma, m/s^2")
		gyroNoise = flag.Float64("gyro-noise", 0.005, "gyroscope noise sigma, rad/s")
		magnetic  = flag.Bool("mag", false, "simulate a magnetometer and use the geomagnetic strategy")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	var deliver sync.Mutex
	accel := sensors.NewSimSource(sensors.Accelerometer, *period,
		sensors.StaticAccelerometer(9.81, *accNoise))
	accel.Serialize(&deliver)
	gyro := sensors.NewSimSource(sensors.Gyroscope, *period,
		sensors.ConstantRateGyroscope(*rate, *gyroNoise))
	gyro.Serialize(&deliver)

	var mag *sensors.SimSource
	if *magnetic {
		mag = sensors.NewSimSource(sensors.Magnetometer, *period,
			sensors.UniformField(ahrs.Vector3{X: 22, Z: 45}, 0.5))
		mag.Serialize(&deliver)
	}

	grav, err := gravity.New(gravity.DefaultProcessNoise, gravity.DefaultMeasurementNoise)
	if err != nil {
		log.WithError(err).Fatal("building gravity filter")
	}

	var magSource ahrs.MeasurementSource
	if mag != nil {
		magSource = mag
	}
	est, err := ahrs.NewAttitudeEstimator(accel, gyro, magSource, grav, ahrs.DefaultFusedConfig())
	if err != nil {
		log.WithError(err).Fatal("building attitude estimator")
	}
	if *magnetic {
		if err := est.SetLocation(&ahrs.Location{Latitude: 41.38, Longitude: 2.17}); err != nil {
			log.WithError(err).Fatal("setting location")
		}
	}

	if *addr != "" {
		room := ahrsweb.NewRoom()
		forwarder := ahrsweb.NewAttitudeForwarder(room)
		est.OnAttitude = forwarder.OnAttitude
		go room.Run()
		http.Handle("/attitude", room)
		go func() {
			log.WithField("addr", *addr).Info("serving attitude websocket")
			if err := http.ListenAndServe(*addr, nil); err != nil {
				log.WithError(err).Fatal("websocket server")
			}
		}()
	} else {
		est.OnAttitude = func(ev ahrs.AttitudeEvent) {
			roll, pitch, yaw := ahrs.FromQuaternion(ev.Attitude)
			log.WithFields(log.Fields{
				"roll":  roll,
				"pitch": pitch,
				"yaw":   yaw,
			}).Debug("fused attitude")
		}
	}

	if !est.IsReady() {
		log.Fatal("no estimation strategy available for the configured sensors")
	}
	log.WithField("type", est.Type().String()).Info("starting attitude estimation")
	if err := est.Start(); err != nil {
		log.WithError(err).Fatal("starting estimator")
	}

	time.Sleep(*duration)
	est.Stop()
	log.Info("done")
}
