package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithPrometheusRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording session lifecycle metrics", func() {
			Convey("Then it should not panic", func() {
				So(RecordSessionStarted, ShouldNotPanic)
				So(RecordSessionCompleted, ShouldNotPanic)
				So(RecordSessionFailed, ShouldNotPanic)
				So(func() { UpdateActiveSessions(2) }, ShouldNotPanic)
			})
		})

		Convey("When recording roster metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() { UpdateConnectedClients(5) }, ShouldNotPanic)
				So(func() { UpdatePoolSize(3) }, ShouldNotPanic)
				So(RecordBroadcast, ShouldNotPanic)
				So(RecordSendFailure, ShouldNotPanic)
			})
		})

		Convey("When recording scoring metrics", func() {
			Convey("Then it should not panic", func() {
				So(RecordScoreSubmitted, ShouldNotPanic)
				So(RecordScoreTimeout, ShouldNotPanic)
				So(RecordPersistenceError, ShouldNotPanic)
				So(func() { RecordScoringLatency(0.25) }, ShouldNotPanic)
			})
		})

		Convey("When recording rendezvous metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() { UpdatePendingTags(4) }, ShouldNotPanic)
				So(RecordTagResolution, ShouldNotPanic)
				So(RecordTagTimeout, ShouldNotPanic)
			})
		})

		Convey("When recording HTTP metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() { RecordHTTPRequest("healthz", "GET", "200") }, ShouldNotPanic)
				So(func() { RecordHTTPRequestDuration("healthz", "GET", "200", 12.5) }, ShouldNotPanic)
			})
		})

		Convey("When recording system metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() { UpdateSystemMemoryUsage(1 << 20) }, ShouldNotPanic)
				So(func() { UpdateSystemGoroutineCount(42) }, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		Convey("When fetching it", func() {
			registry := GetRegistry()

			Convey("Then it should be the custom registry", func() {
				So(registry, ShouldNotBeNil)
				So(registry, ShouldEqual, customRegistry)
			})

			Convey("And gathering should succeed", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeNil)
			})
		})
	})
}
