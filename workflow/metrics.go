package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	stageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_workflow_stage_total",
			Help: "Product workflow stage outcomes by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)

	variantTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_workflow_variant_total",
			Help: "Variant submission outcomes.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(stageTotal, variantTotal)
}

func stageStarted(stage string)   { stageTotal.WithLabelValues(stage, "started").Inc() }
func stageSucceeded(stage string) { stageTotal.WithLabelValues(stage, "success").Inc() }
func stageFailed(stage string)    { stageTotal.WithLabelValues(stage, "failure").Inc() }

func variantSucceeded() { variantTotal.WithLabelValues("success").Inc() }
func variantFailed()    { variantTotal.WithLabelValues("failure").Inc() }
