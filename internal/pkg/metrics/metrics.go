package metrics

import (
	"sync"

	"github.com/anicoll/winix-integration/internal/pkg/device"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"github.com/prometheus/client_golang/prometheus"
)

// SessionSource lists the devices to report on.
type SessionSource interface {
	Sessions() []device.Session
}

// Collector reports the cached state of every device. It never polls.
type Collector struct {
	source SessionSource
	mu     sync.Mutex

	powerOn         *prometheus.GaugeVec
	currentHumidity *prometheus.GaugeVec
	targetHumidity  *prometheus.GaugeVec
	timer           *prometheus.GaugeVec
	mode            *prometheus.GaugeVec
	childLock       *prometheus.GaugeVec
	uvSterilization *prometheus.GaugeVec
	pending         *prometheus.GaugeVec
}

func NewCollector(source SessionSource) *Collector {
	labels := []string{"device"}
	return &Collector{
		source: source,
		powerOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_power_on",
			Help: "Whether the dehumidifier is on (1=on, 0=off)",
		}, labels),
		currentHumidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_current_humidity_percent",
			Help: "Reported room humidity (%)",
		}, labels),
		targetHumidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_target_humidity_percent",
			Help: "Target humidity (%)",
		}, labels),
		timer: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_timer_hours",
			Help: "Off timer (hours)",
		}, labels),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_mode",
			Help: "Operating mode (1=active)",
		}, []string{"device", "mode"}),
		childLock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_child_lock",
			Help: "Whether child lock is enabled (1=on, 0=off)",
		}, labels),
		uvSterilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_uv_sterilization",
			Help: "Whether UV sterilization is enabled (1=on, 0=off)",
		}, labels),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_state_pending",
			Help: "Whether writes are waiting for the next poll (1=pending)",
		}, labels),
	}
}

func (c *Collector) vecs() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		c.powerOn,
		c.currentHumidity,
		c.targetHumidity,
		c.timer,
		c.mode,
		c.childLock,
		c.uvSterilization,
		c.pending,
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, v := range c.vecs() {
		v.Describe(ch)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.vecs() {
		v.Reset()
	}

	for _, s := range c.source.Sessions() {
		name := s.Stub().Name()
		state := s.State()

		c.powerOn.WithLabelValues(name).Set(boolValue(s.IsOn()))
		c.pending.WithLabelValues(name).Set(boolValue(s.Pending()))
		if v, ok := state.Int(winix.AttrCurrentHumidity); ok {
			c.currentHumidity.WithLabelValues(name).Set(float64(v))
		}
		if v, ok := state.Int(winix.AttrTargetHumidity); ok {
			c.targetHumidity.WithLabelValues(name).Set(float64(v))
		}
		if v, ok := state.Int(winix.AttrTimer); ok {
			c.timer.WithLabelValues(name).Set(float64(v))
		}
		if v, ok := state.String(winix.AttrMode); ok {
			c.mode.WithLabelValues(name, v).Set(1)
		}
		if v, ok := state.String(winix.AttrChildLock); ok {
			c.childLock.WithLabelValues(name).Set(boolValue(v == winix.OnValue))
		}
		if v, ok := state.String(winix.AttrUVSterilization); ok {
			c.uvSterilization.WithLabelValues(name).Set(boolValue(v == winix.OnValue))
		}
	}

	for _, v := range c.vecs() {
		v.Collect(ch)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Registry builds a registry from collectors.
func Registry(collectors ...prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	for _, collector := range collectors {
		registry.MustRegister(collector)
	}
	return registry
}
