package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/eerc-node/api"
	"github.com/vocdoni/eerc-node/ledger"
	"github.com/vocdoni/eerc-node/storage"
)

// Error is an error response of the API.
type Error struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d (code %d): %s", errCodeNot200, e.Status, e.Code, e.Message)
}

// call performs the request and decodes the JSON response into out, which
// may be nil.
func (c *HTTPclient) call(method string, body, out any, params []string, urlPath ...string) error {
	data, status, err := c.Request(method, body, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &Error{Status: status}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

// Info returns the ledger description.
func (c *HTTPclient) Info() (*ledger.Info, error) {
	info := &ledger.Info{}
	return info, c.call(HTTPGET, nil, info, nil, api.InfoEndpoint)
}

// Register binds an account to its encryption key.
func (c *HTTPclient) Register(req *api.Registration) (*api.RegistrationResponse, error) {
	resp := &api.RegistrationResponse{}
	return resp, c.call(HTTPPOST, req, resp, nil, api.RegistrationsEndpoint)
}

// Account returns the public key and encrypted balance of address.
func (c *HTTPclient) Account(address common.Address) (*api.Account, error) {
	acc := &api.Account{}
	return acc, c.call(HTTPGET, nil, acc, nil, "accounts", address.Hex())
}

// AccountProof returns the state tree proof of address.
func (c *HTTPclient) AccountProof(address common.Address) (*storage.AccountProof, error) {
	proof := &storage.AccountProof{}
	return proof, c.call(HTTPGET, nil, proof, nil, "accounts", address.Hex(), "proof")
}

// Mint submits a signed mint.
func (c *HTTPclient) Mint(req *api.Mint) (*storage.Record, error) {
	return c.operation(api.MintsEndpoint, req)
}

// Transfer submits a transfer.
func (c *HTTPclient) Transfer(req *api.Transfer) (*storage.Record, error) {
	return c.operation(api.TransfersEndpoint, req)
}

// Withdraw submits a withdrawal.
func (c *HTTPclient) Withdraw(req *api.Withdrawal) (*storage.Record, error) {
	return c.operation(api.WithdrawalsEndpoint, req)
}

// Burn submits a burn.
func (c *HTTPclient) Burn(req *api.Burn) (*storage.Record, error) {
	return c.operation(api.BurnsEndpoint, req)
}

// Deposit submits a deposit.
func (c *HTTPclient) Deposit(req *api.Deposit) (*storage.Record, error) {
	return c.operation(api.DepositsEndpoint, req)
}

func (c *HTTPclient) operation(endpoint string, req any) (*storage.Record, error) {
	rec := &storage.Record{}
	return rec, c.call(HTTPPOST, req, rec, nil, endpoint)
}

// Records returns a page of the operation log. A zero limit uses the
// server default.
func (c *HTTPclient) Records(from uint64, limit int) (*api.Records, error) {
	params := []string{api.FromQueryParam, strconv.FormatUint(from, 10)}
	if limit > 0 {
		params = append(params, api.LimitQueryParam, strconv.Itoa(limit))
	}
	records := &api.Records{}
	return records, c.call(HTTPGET, nil, records, params, api.RecordsEndpoint)
}

// Record returns one operation record.
func (c *HTTPclient) Record(index uint64) (*storage.Record, error) {
	rec := &storage.Record{}
	return rec, c.call(HTTPGET, nil, rec, nil, "records", strconv.FormatUint(index, 10))
}

// Reserve returns the custody reserve.
func (c *HTTPclient) Reserve() (*api.Reserve, error) {
	reserve := &api.Reserve{}
	return reserve, c.call(HTTPGET, nil, reserve, nil, api.ReserveEndpoint)
}

// StateRoot returns the root of the account state tree.
func (c *HTTPclient) StateRoot() (*api.StateRoot, error) {
	root := &api.StateRoot{}
	return root, c.call(HTTPGET, nil, root, nil, api.StateRootEndpoint)
}
