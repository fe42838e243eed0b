// internal/keithley/dialect.go
package keithley

// Dialect holds the per-model framing of the four queries whose replies differ.
type Dialect interface {
	Identify(q querier) (string, error)
	Card(q querier) (string, error)
	Fetch(q querier) (string, error)
	Error(q querier) (string, error)
}

type querier interface {
	Query(cmd string) (string, error)
}

// plainDialect returns replies as they are (2700, 2701).
type plainDialect struct{}

func (plainDialect) Identify(q querier) (string, error) { return q.Query("*IDN?") }
func (plainDialect) Card(q querier) (string, error)     { return q.Query("*OPT?") }
func (plainDialect) Fetch(q querier) (string, error)    { return q.Query("FETCH?") }
func (plainDialect) Error(q querier) (string, error)    { return q.Query("SYST:ERR?") }

// quotedDialect drops the wrapping character on both ends of every reply (2750).
type quotedDialect struct{}

func (quotedDialect) Identify(q querier) (string, error) { return unwrap(q.Query("*IDN?")) }
func (quotedDialect) Card(q querier) (string, error)     { return unwrap(q.Query("*OPT?")) }
func (quotedDialect) Fetch(q querier) (string, error)    { return unwrap(q.Query("FETCH?")) }
func (quotedDialect) Error(q querier) (string, error)    { return unwrap(q.Query("SYST:ERR?")) }

func unwrap(reply string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(reply) < 2 {
		return "", nil
	}
	return reply[1 : len(reply)-1], nil
}

// DialectFor returns the dialect of a 27XX model.
func DialectFor(model string) Dialect {
	if model == "2750" {
		return quotedDialect{}
	}
	return plainDialect{}
}
