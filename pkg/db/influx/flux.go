package influx

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

const (
	listBucketsFlux = `buckets() |> rename(columns: {name: "name"}) |> keep(columns: ["name"])`
	schemaImport    = `import "influxdata/influxdb/schema"`
)

// ToFlux rewrites the legacy listing statements understood by the V1 dialect.
// Any other text is returned untouched.
func ToFlux(text, bucket string) (string, error) {
	s := strings.TrimSpace(text)
	switch {
	case hasPrefixFold(s, "SHOW DATABASES"):
		return listBucketsFlux, nil
	case hasPrefixFold(s, "SHOW MEASUREMENTS"):
		if bucket == "" {
			return "", db.NewError(db.KindValidation, "SHOW MEASUREMENTS needs a bucket")
		}
		return measurementsFlux(bucket), nil
	}
	return text, nil
}

func measurementsFlux(bucket string) string {
	return fmt.Sprintf("%s\nschema.measurements(bucket: %s)", schemaImport, fluxString(bucket))
}

func tagKeysFlux(bucket, measurement string) string {
	return fmt.Sprintf("%s\nschema.measurementTagKeys(bucket: %s, measurement: %s)",
		schemaImport, fluxString(bucket), fluxString(measurement))
}

func fieldKeysFlux(bucket, measurement string) string {
	return fmt.Sprintf("%s\nschema.measurementFieldKeys(bucket: %s, measurement: %s)",
		schemaImport, fluxString(bucket), fluxString(measurement))
}

// fluxString renders s as a double-quoted Flux string literal.
func fluxString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`)
	return `"` + r.Replace(s) + `"`
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return false
	}
	return len(s) == len(prefix) || !isIdentRune(rune(s[len(prefix)]))
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
