package whereclause

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/aomilabs/agentcore/internal/agent"
)

func clause(t *testing.T, s string) *agent.WhereClause {
	t.Helper()
	raw := agent.WhereClause(s)
	return &raw
}

func TestEvaluateNilOrNullAlwaysPasses(t *testing.T) {
	ok, err := Evaluate(nil, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Evaluate(clause(t, "null"), nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateEqualityOnBoolean(t *testing.T) {
	fields := map[string]agent.HandlerValue{"allowed": agent.BooleanValue(true)}

	ok, err := Evaluate(clause(t, `["=", "#allowed", true]`), fields)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Evaluate(clause(t, `["!=", "#allowed", true]`), fields)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvaluateAddressCaseInsensitive(t *testing.T) {
	fields := map[string]agent.HandlerValue{
		"proposer": agent.AddressValue("0xABCDEFabcdef00000000000000000000000000"),
	}
	ok, err := Evaluate(clause(t, `["=", "proposer", "0xabcdefABCDEF00000000000000000000000000"]`), fields)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateNumberAgainstStringOperand(t *testing.T) {
	fields := map[string]agent.HandlerValue{"value": agent.NumberValue("12345678901234567890")}
	ok, err := Evaluate(clause(t, `["=", "value", "12345678901234567890"]`), fields)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateMissingFieldErrors(t *testing.T) {
	_, err := Evaluate(clause(t, `["=", "missing", 1]`), map[string]agent.HandlerValue{})
	require.Error(t, err)
	require.True(t, agent.Is(err, agent.KindWhere))
}

func TestEvaluateMalformedClauseErrors(t *testing.T) {
	_, err := Evaluate(clause(t, `["=", "onlytwo"]`), map[string]agent.HandlerValue{})
	require.Error(t, err)
}

func TestEvaluateUnsupportedOperatorErrors(t *testing.T) {
	fields := map[string]agent.HandlerValue{"x": agent.BooleanValue(true)}
	_, err := Evaluate(clause(t, `[">", "x", true]`), fields)
	require.Error(t, err)
}

func TestClauseIsValidJSON(t *testing.T) {
	raw := clause(t, `["=", "#allowed", true]`)
	var arr []jsoniter.RawMessage
	require.NoError(t, json.Unmarshal(*raw, &arr))
	require.Len(t, arr, 3)
}
