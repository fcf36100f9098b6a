package registry

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evore-labs/evore-crank/pkg/crank/common"
	"github.com/evore-labs/evore-crank/pkg/solana"
	addresslookuptable "github.com/evore-labs/evore-crank/pkg/solana/addresslookuptable"
	compute_budget "github.com/evore-labs/evore-crank/pkg/solana/computebudget"
)

const (
	// Byte offset of the authority option within lookup table metadata.
	tableAuthorityOffset = 22

	// Max addresses appended per extend instruction before the transaction
	// outgrows the packet size.
	extendChunkSize = 25

	// Slots a deactivated table must cool down before it can be closed.
	deactivationCooldownSlots = 512

	noDeactivationSlot = ^uint64(0)

	createTableComputeUnitLimit = 50_000
	extendTableComputeUnitLimit = 100_000
)

type tableState struct {
	address ed25519.PublicKey
	account addresslookuptable.AddressLookupTableAccount
}

// Registry discovers and maintains the address lookup tables used to pack
// deploy transactions: one shared table for round-independent accounts and
// one small table per managed miner.
type Registry struct {
	log         *logrus.Entry
	client      solana.Client
	signer      *common.Account
	priorityFee uint64

	mu     sync.RWMutex
	shared *tableState
	miners map[string]*tableState
	stale  []*tableState
}

func NewRegistry(client solana.Client, signer *common.Account, priorityFee uint64) *Registry {
	return &Registry{
		log:         logrus.StandardLogger().WithField("type", "crank/registry"),
		client:      client,
		signer:      signer,
		priorityFee: priorityFee,
		miners:      make(map[string]*tableState),
	}
}

// Load scans every lookup table owned by the deploy authority and
// classifies it. When several tables qualify as the shared table the oldest
// one wins, by lowest last extended slot and then lowest address, so every
// crank instance converges on the same choice.
func (r *Registry) Load(ctx context.Context) error {
	log := r.log.WithField("method", "Load")

	authority := r.signer.PublicKey().ToBytes()

	accounts, _, err := r.client.GetProgramAccounts(
		addresslookuptable.ProgramKey,
		solana.CommitmentConfirmed,
		solana.MemcmpFilter(tableAuthorityOffset, authority),
	)
	if err != nil {
		log.WithError(err).Warn("failure scanning lookup tables")
		return errors.Wrap(err, "error getting lookup tables")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.shared = nil
	r.miners = make(map[string]*tableState)
	r.stale = nil

	for _, programAccount := range accounts {
		var account addresslookuptable.AddressLookupTableAccount
		if err := account.Unmarshal(programAccount.Account.Data); err != nil {
			continue
		}

		state := &tableState{
			address: programAccount.PubKey,
			account: account,
		}

		classification, err := Classify(authority, &account)
		if err != nil {
			return err
		}

		switch classification.Kind {
		case TableKindShared:
			if r.shared == nil || isPreferredShared(state, r.shared) {
				if r.shared != nil {
					r.stale = append(r.stale, r.shared)
				}
				r.shared = state
			} else {
				r.stale = append(r.stale, state)
			}
		case TableKindMiner:
			r.miners[base58.Encode(classification.MinerAuth)] = state
		case TableKindLegacy:
			r.stale = append(r.stale, state)
		}
	}

	log.WithFields(logrus.Fields{
		"has_shared":   r.shared != nil,
		"miner_tables": len(r.miners),
		"stale_tables": len(r.stale),
	}).Debug("loaded lookup tables")

	return nil
}

// EnsureShared returns the shared lookup table, creating it or extending it
// with any missing addresses first. The table only becomes usable one slot
// after its last extension, so this blocks until activation.
func (r *Registry) EnsureShared(ctx context.Context) (solana.AddressLookupTable, error) {
	required, err := SharedTableAddresses(r.signer.PublicKey().ToBytes())
	if err != nil {
		return solana.AddressLookupTable{}, err
	}

	r.mu.RLock()
	state := r.shared
	r.mu.RUnlock()

	if state == nil {
		state, err = r.createTable(ctx, required)
		if err != nil {
			return solana.AddressLookupTable{}, err
		}

		r.mu.Lock()
		r.shared = state
		r.mu.Unlock()
	} else if missing := missingAddresses(state.account.Addresses, required); len(missing) > 0 {
		if err := r.extendTable(ctx, state, missing); err != nil {
			return solana.AddressLookupTable{}, err
		}
	}

	return solana.AddressLookupTable{
		PublicKey: state.address,
		Addresses: state.account.Addresses,
	}, nil
}

// EnsureMiner returns the lookup table for one managed miner, creating it
// if the miner doesn't have a current one yet.
func (r *Registry) EnsureMiner(ctx context.Context, manager ed25519.PublicKey, authId uint64) (solana.AddressLookupTable, error) {
	required, err := MinerTableAddresses(manager, authId)
	if err != nil {
		return solana.AddressLookupTable{}, err
	}
	minerAuth := required[2]

	r.mu.RLock()
	state, ok := r.miners[base58.Encode(minerAuth)]
	r.mu.RUnlock()

	if !ok {
		state, err = r.createTable(ctx, required)
		if err != nil {
			return solana.AddressLookupTable{}, err
		}

		r.mu.Lock()
		r.miners[base58.Encode(minerAuth)] = state
		r.mu.Unlock()
	}

	return solana.AddressLookupTable{
		PublicKey: state.address,
		Addresses: state.account.Addresses,
	}, nil
}

// HasShared reports whether a shared table is known, which decides how
// large a compacted batch can be.
func (r *Registry) HasShared() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shared != nil
}

// TablesFor returns the tables covering a batch of miners, when available.
// A missing miner table isn't an error, the caller just packs a smaller
// batch without table compression.
func (r *Registry) TablesFor(minerAuths []ed25519.PublicKey) ([]solana.AddressLookupTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.shared == nil {
		return nil, false
	}

	tables := []solana.AddressLookupTable{{
		PublicKey: r.shared.address,
		Addresses: r.shared.account.Addresses,
	}}

	for _, minerAuth := range minerAuths {
		state, ok := r.miners[base58.Encode(minerAuth)]
		if !ok {
			return nil, false
		}

		tables = append(tables, solana.AddressLookupTable{
			PublicKey: state.address,
			Addresses: state.account.Addresses,
		})
	}

	return tables, true
}

// Cleanup deactivates stale tables and closes the ones that have finished
// the deactivation cooldown, returning their rent to the authority.
func (r *Registry) Cleanup(ctx context.Context) error {
	log := r.log.WithField("method", "Cleanup")

	r.mu.Lock()
	stale := r.stale
	r.mu.Unlock()

	if len(stale) == 0 {
		return nil
	}

	currentSlot, err := r.client.GetSlot(solana.CommitmentConfirmed)
	if err != nil {
		return errors.Wrap(err, "error getting slot")
	}

	var remaining []*tableState
	for _, state := range stale {
		switch {
		case state.account.DeactivationSlot == noDeactivationSlot:
			ixn := addresslookuptable.Deactivate(state.address, r.signer.PublicKey().ToBytes())
			if _, err := r.submit(ctx, createTableComputeUnitLimit, ixn); err != nil {
				log.WithError(err).Warn("failure deactivating lookup table")
				remaining = append(remaining, state)
				continue
			}

			state.account.DeactivationSlot = currentSlot
			remaining = append(remaining, state)
		case currentSlot >= state.account.DeactivationSlot+deactivationCooldownSlots:
			ixn := addresslookuptable.Close(state.address, r.signer.PublicKey().ToBytes(), r.signer.PublicKey().ToBytes())
			if _, err := r.submit(ctx, createTableComputeUnitLimit, ixn); err != nil {
				log.WithError(err).Warn("failure closing lookup table")
				remaining = append(remaining, state)
				continue
			}

			log.WithField("table", base58.Encode(state.address)).Info("closed stale lookup table")
		default:
			remaining = append(remaining, state)
		}
	}

	r.mu.Lock()
	r.stale = remaining
	r.mu.Unlock()

	return nil
}

func (r *Registry) createTable(ctx context.Context, addresses []ed25519.PublicKey) (*tableState, error) {
	log := r.log.WithField("method", "createTable")

	recentSlot, err := r.client.GetSlot(solana.CommitmentFinalized)
	if err != nil {
		return nil, errors.Wrap(err, "error getting slot")
	}

	authority := ed25519.PublicKey(r.signer.PublicKey().ToBytes())

	address, bump, err := addresslookuptable.GetAddress(authority, recentSlot)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving lookup table address")
	}

	createIxn := addresslookuptable.Create(address, authority, authority, recentSlot, bump)
	if _, err := r.submit(ctx, createTableComputeUnitLimit, createIxn); err != nil {
		return nil, errors.Wrap(err, "error creating lookup table")
	}

	state := &tableState{
		address: address,
		account: addresslookuptable.AddressLookupTableAccount{
			DeactivationSlot: noDeactivationSlot,
			Authority:        authority,
		},
	}

	if err := r.extendTable(ctx, state, addresses); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"table":     base58.Encode(address),
		"addresses": len(addresses),
	}).Info("created lookup table")

	return state, nil
}

func (r *Registry) extendTable(ctx context.Context, state *tableState, addresses []ed25519.PublicKey) error {
	authority := ed25519.PublicKey(r.signer.PublicKey().ToBytes())

	for len(addresses) > 0 {
		chunk := addresses
		if len(chunk) > extendChunkSize {
			chunk = chunk[:extendChunkSize]
		}
		addresses = addresses[len(chunk):]

		ixn := addresslookuptable.Extend(state.address, authority, authority, chunk...)
		if _, err := r.submit(ctx, extendTableComputeUnitLimit, ixn); err != nil {
			return errors.Wrap(err, "error extending lookup table")
		}

		state.account.Addresses = append(state.account.Addresses, chunk...)
	}

	extendedAtSlot, err := r.client.GetSlot(solana.CommitmentConfirmed)
	if err != nil {
		return errors.Wrap(err, "error getting slot")
	}
	state.account.LastExtendedSlot = extendedAtSlot

	return r.waitForActivation(ctx, extendedAtSlot)
}

// waitForActivation blocks until the chain moves past the slot of the last
// extension, at which point the table contents are usable in a transaction.
func (r *Registry) waitForActivation(ctx context.Context, extendedAtSlot uint64) error {
	for {
		slot, err := r.client.GetSlot(solana.CommitmentConfirmed)
		if err != nil {
			return errors.Wrap(err, "error getting slot")
		}

		if slot > extendedAtSlot {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(solana.PollRate):
		}
	}
}

func (r *Registry) submit(ctx context.Context, computeUnitLimit uint32, ixns ...solana.Instruction) (solana.Signature, error) {
	instructions := []solana.Instruction{
		compute_budget.SetComputeUnitLimit(computeUnitLimit),
		compute_budget.SetComputeUnitPrice(r.priorityFee),
	}
	instructions = append(instructions, ixns...)

	txn := solana.NewTransaction(r.signer.PublicKey().ToBytes(), instructions...)

	blockhash, err := r.client.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error getting latest blockhash")
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(ed25519.PrivateKey(r.signer.PrivateKey().ToBytes())); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	sig, err := r.client.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error submitting transaction")
	}

	if _, err := r.client.GetSignatureStatus(sig, solana.CommitmentConfirmed); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error confirming transaction")
	}

	return sig, nil
}

func isPreferredShared(candidate, current *tableState) bool {
	if candidate.account.LastExtendedSlot != current.account.LastExtendedSlot {
		return candidate.account.LastExtendedSlot < current.account.LastExtendedSlot
	}
	return bytes.Compare(candidate.address, current.address) < 0
}

func missingAddresses(have, want []ed25519.PublicKey) []ed25519.PublicKey {
	var missing []ed25519.PublicKey
	for _, address := range want {
		var found bool
		for _, existing := range have {
			if bytes.Equal(existing, address) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, address)
		}
	}
	return missing
}
