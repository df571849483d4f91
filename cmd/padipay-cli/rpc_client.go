package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// callRPC posts one JSON-RPC request. A nil param sends no params.
func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, *rpcError, error) {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	resp, err := doRPCRequest(body, requireAuth)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response from node (HTTP %d)", resp.StatusCode)
	}
	return rpcResp.Result, rpcResp.Error, nil
}

// callInto is callRPC decoding the result into out.
func callInto(method string, param interface{}, requireAuth bool, out interface{}) (*rpcError, error) {
	result, rpcErr, err := callRPC(method, param, requireAuth)
	if err != nil || rpcErr != nil {
		return rpcErr, err
	}
	if err := json.Unmarshal(result, out); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil, nil
}

func doRPCRequest(payload []byte, requireAuth bool) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if rpcAuthToken == "" {
			return nil, fmt.Errorf("this call requires a bearer token; set PADIPAY_RPC_TOKEN or pass --token")
		}
		req.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	return resp, nil
}

func handleRPCError(w io.Writer, err *rpcError) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC error %d: %s\n", err.Code, err.Message)
	return 1
}

func handleRPCCallError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC call failed: %v\n", err)
	return 1
}

// report prints result or the failure and returns the exit code.
func report(stdout, stderr io.Writer, result json.RawMessage, rpcErr *rpcError, err error) int {
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err == nil {
		result = pretty.Bytes()
	}
	if _, err := w.Write(result); err == nil {
		if result[len(result)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
}

// fingerprintParam returns the 0x fingerprint for either a phone number or an
// explicit fingerprint flag.
func fingerprintParam(phone, fingerprint string) (string, error) {
	phone = strings.TrimSpace(phone)
	fingerprint = strings.TrimSpace(fingerprint)
	switch {
	case phone != "" && fingerprint != "":
		return "", fmt.Errorf("--phone and --fingerprint are mutually exclusive")
	case fingerprint != "":
		return fingerprint, nil
	case phone != "":
		return hashPhone(phone)
	default:
		return "", fmt.Errorf("--phone or --fingerprint is required")
	}
}
