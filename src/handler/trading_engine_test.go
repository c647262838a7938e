package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthflow/src/broker"
	"wealthflow/src/execution"
	"wealthflow/src/ledger"
	"wealthflow/src/risk"
)

func newPaperEngine() *execution.Engine {
	log, _ := logrustest.NewNullLogger()
	entry := logrus.NewEntry(log)
	l := ledger.New()
	p := broker.NewPaper(10000, l, entry)
	rm := risk.NewManager(risk.DefaultConfig(), entry)
	return execution.NewEngine(execution.DefaultConfig(), p, l, rm, nil, entry)
}

func TestLowerCaseSymbolRoundTrip(t *testing.T) {
	engine := newPaperEngine()
	h := tradingRouter(engine)

	rr := do(h, http.MethodPost, "/signals", `{"symbol":"bitcoin","action":"buy","quantity":0.001,"price":60000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(h, http.MethodPost, "/positions/bitcoin/stop-loss", `{"price":55000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(h, http.MethodPost, "/positions/bitcoin/close", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res execution.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Success)

	_, held := engine.Position("bitcoin")
	assert.False(t, held)

	rr = do(h, http.MethodPost, "/positions/bitcoin/close", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
