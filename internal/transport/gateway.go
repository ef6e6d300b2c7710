package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

// RegisterGateway exposes the TxPool handler as REST routes on mux.
func RegisterGateway(mux *gwruntime.ServeMux, h *TxPoolHandler) error {
	routes := []struct {
		method  string
		pattern string
		handler gwruntime.HandlerFunc
	}{
		{http.MethodPost, "/v1/transactions", h.submitHTTP},
		{http.MethodGet, "/v1/transactions", h.queryHTTP},
		{http.MethodGet, "/v1/transactions/{txid}", h.getHTTP},
		{http.MethodGet, "/v1/select", h.selectHTTP},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

func (h *TxPoolHandler) submitHTTP(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var dto model.TransactionDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&dto); err != nil {
		writeError(w, status.Error(codes.InvalidArgument, "decode transaction: "+err.Error()))
		return
	}
	resp, err := h.Submit(r.Context(), &SubmitRequest{Transaction: dto})
	if err != nil {
		writeError(w, err)
		return
	}
	code := http.StatusAccepted
	if !resp.Admitted {
		code = http.StatusOK
	}
	writeJSON(w, code, resp)
}

func (h *TxPoolHandler) queryHTTP(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	req := &QueryRequest{
		TxIDs: q["txid"],
		Owner: q.Get("owner"),
	}
	var err error
	if req.MinGasPrice, err = uintParam(q.Get("min_gas_price")); err != nil {
		writeError(w, status.Error(codes.InvalidArgument, "min_gas_price: "+err.Error()))
		return
	}
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, status.Error(codes.InvalidArgument, "limit: "+err.Error()))
			return
		}
	}
	resp, err := h.Query(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TxPoolHandler) getHTTP(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := h.Query(r.Context(), &QueryRequest{TxIDs: []string{params["txid"]}, Limit: 1})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(resp.Transactions) == 0 {
		writeError(w, status.Error(codes.NotFound, "transaction is not pending"))
		return
	}
	writeJSON(w, http.StatusOK, resp.Transactions[0])
}

func (h *TxPoolHandler) selectHTTP(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	maxWeight, err := uintParam(r.URL.Query().Get("max_weight"))
	if err != nil {
		writeError(w, status.Error(codes.InvalidArgument, "max_weight: "+err.Error()))
		return
	}
	resp, err := h.Select(r.Context(), &SelectRequest{MaxWeight: maxWeight})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func uintParam(v string) (uint64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	writeJSON(w, gwruntime.HTTPStatusFromCode(st.Code()), errorBody{Code: st.Code().String(), Message: st.Message()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
