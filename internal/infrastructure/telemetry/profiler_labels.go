// Package telemetry provides Pyroscope continuous profiling integration.
package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelTenantID   = "tenant_id"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelDepartment = "department_id"
)

// MaxLabelValueLength caps label values to keep profile cardinality bounded.
const MaxLabelValueLength = 128

// HighCardinalityLabels are dropped by sanitizeLabels. Do not modify at runtime.
var HighCardinalityLabels = map[string]bool{
	"request_id":       true,
	"trace_id":         true,
	"span_id":          true,
	"invoice_id":       true,
	"payment_id":       true,
	"patient_id":       true,
	"service_order_id": true,
}

// WithProfilingLabels runs fn with Pyroscope labels attached to ctx.
// Labels with empty values or high-cardinality keys are dropped.
//
//	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("add_payment", nil), func(c context.Context) {
//	    result, err = s.addPayment(c, req)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	labelPairs := sanitizeLabels(labels)
	if len(labelPairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(labelPairs...), fn)
}

// sanitizeLabels returns sorted key/value pairs with empty and
// high-cardinality entries removed and long values truncated.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		sanitizedKey := sanitizeLabelKey(key)
		if sanitizedKey == "" {
			continue
		}
		pairs = append(pairs, sanitizedKey, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// HTTPRequestLabels creates the standard label set for an HTTP handler.
func HTTPRequestLabels(controller, route, method, tenantID string) map[string]string {
	return map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
		ProfilingLabelTenantID:   tenantID,
	}
}

// OperationLabels creates labels for a named operation.
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	maps.Copy(labels, extraLabels)
	labels[ProfilingLabelOperation] = operation
	return labels
}

// Operation names used in profiling labels.
const (
	OperationCreateInvoice   = "create_invoice"
	OperationAddPayment      = "add_payment"
	OperationRetryAdmissions = "retry_admissions"
	OperationEnqueue         = "enqueue"
	OperationQueueBoard      = "queue_board"
)

// BillingOperationLabels labels invoice and payment work.
func BillingOperationLabels(operation string) map[string]string {
	return OperationLabels(operation, map[string]string{"domain": "billing"})
}

// QueueOperationLabels labels department queue work. Department ids are
// bounded per tenant, so they are kept as a label.
func QueueOperationLabels(operation, departmentID string) map[string]string {
	return OperationLabels(operation, map[string]string{
		"domain":                 "queue",
		ProfilingLabelDepartment: departmentID,
	})
}
