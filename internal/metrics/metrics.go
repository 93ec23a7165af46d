package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QuestionsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_questions_generated_total",
			Help: "Question generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	Answers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_answers_total",
			Help: "Contestant answers by result",
		},
		[]string{"result"},
	)

	LifeLinesUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_lifelines_used_total",
			Help: "Lifelines used by kind",
		},
		[]string{"lifeline"},
	)

	AudienceResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_audience_responses_total",
			Help: "Inbound audience texts by validation outcome",
		},
		[]string{"outcome"},
	)

	SMSDeliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "millionaire_sms_delivery_failures_total",
			Help: "Audience replies that could not be delivered",
		},
	)
)

func init() {
	prometheus.MustRegister(QuestionsGenerated, Answers, LifeLinesUsed, AudienceResponses, SMSDeliveryFailures)
}
