package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
)

func TestRequest_Key(t *testing.T) {
	a := Request{
		Filter:  condition.Column("model").Eq("gpt-4").And(condition.Column("score").Gt(0.8)),
		OrderBy: []condition.SortKey{condition.Column("score").Desc()},
		Limit:   50,
	}
	b := Request{
		Filter:  condition.Column("model").Eq("gpt-4").And(condition.Column("score").Gt(0.8)),
		OrderBy: []condition.SortKey{condition.Column("score").Desc()},
		Limit:   50,
	}
	ka, err := a.Key()
	require.NoError(t, err)
	kb, err := b.Key()
	require.NoError(t, err)
	assert.Equal(t, ka, kb)

	b.Offset = 50
	kb, err = b.Key()
	require.NoError(t, err)
	assert.NotEqual(t, ka, kb)
}

func TestRequest_KeyKeepsHTMLCharacters(t *testing.T) {
	req := Request{Filter: condition.Column("msg").Like("%a<b&c%"), Limit: 10}
	key, err := req.Key()
	require.NoError(t, err)
	assert.Equal(t,
		`{"filter":{"is_compound":false,"left":"msg","operator":"LIKE","right":"%a<b&c%"},"limit":10}`,
		key)
}

func TestRequest_RoundTrip(t *testing.T) {
	in := Request{Filter: condition.Column("n").Between(1, 2), Limit: 10}
	body, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"filter":{"is_compound":false,"left":"n","operator":"BETWEEN","right":[1,2]},"limit":10}`, string(body))

	var out Request
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, condition.Equal(in.Filter, out.Filter))
	assert.Equal(t, condition.ValueRange, out.Filter.Value().Kind())
}

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, Request{}.Normalize().Validate())
	assert.Equal(t, DefaultLimit, Request{}.Normalize().Limit)
	assert.True(t, apperror.HasCode(Request{Limit: MaxLimit + 1}.Validate(), apperror.CodeValidation))
	assert.True(t, apperror.HasCode(Request{Offset: -1}.Validate(), apperror.CodeValidation))
}
