package society

import (
	"context"
	"strings"
)

// =============================================================================
// HOUSES
// =============================================================================

// ListHouses returns every house with its view recomputed from the member
// and vehicle collections. A corrected view is written back, so the first
// list after an out-of-band edit heals the stored houses.
func (s *Store) ListHouses(ctx context.Context) ([]House, HouseSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	houses, err := s.listHouses(ctx)
	if err != nil {
		return nil, HouseSummary{}, err
	}
	return houses, summarizeHouses(houses), nil
}

func (s *Store) listHouses(ctx context.Context) ([]House, error) {
	houses, err := readCollection[House](ctx, s, KeyHouses)
	if err != nil {
		return nil, err
	}
	members, err := readCollection[Member](ctx, s, KeyMembers)
	if err != nil {
		return nil, err
	}
	vehicles, err := readCollection[Vehicle](ctx, s, KeyVehicles)
	if err != nil {
		return nil, err
	}
	houses, changed := reconcileHouses(houses, members, vehicles)
	if changed {
		if err := writeCollection(ctx, s, KeyHouses, houses); err != nil {
			return nil, err
		}
		s.logger.Debug("house views reconciled", "houses", len(houses))
	}
	return houses, nil
}

func (s *Store) CreateHouse(ctx context.Context, in HouseInput) (House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	houseNo := houseRef(in.HouseNo)
	if houseNo == "" {
		return House{}, invalid("houseNo", "required")
	}
	if in.Status != "" && !in.Status.Valid() {
		return House{}, invalid("status", "unknown status %q", in.Status)
	}
	if in.MembersCount < 0 || in.VehiclesCount < 0 {
		return House{}, invalid("membersCount", "counts must not be negative")
	}

	houses, err := readCollection[House](ctx, s, KeyHouses)
	if err != nil {
		return House{}, err
	}
	if i := findHouseNo(houses, houseNo, -1); i >= 0 {
		return House{}, &DuplicateKeyError{Kind: KindHouse, Field: "houseNo", Value: houseNo}
	}

	status := in.Status
	switch {
	case in.MembersCount > 0:
		status = HouseOccupied
	case status == "":
		status = HouseVacant
	}
	now := s.now()
	h := House{
		ID:            s.newID(),
		HouseNo:       houseNo,
		Block:         houseRef(in.Block),
		Floor:         Floor(strings.TrimSpace(string(in.Floor))),
		Status:        status,
		Notes:         strings.TrimSpace(in.Notes),
		MembersCount:  in.MembersCount,
		VehiclesCount: in.VehiclesCount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	houses = append(houses, h)
	if err := writeCollection(ctx, s, KeyHouses, houses); err != nil {
		return House{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindHouse,
		Action:   ActionCreate,
		Summary:  "House " + h.HouseNo + " created",
		EntityID: h.ID,
		Meta:     map[string]any{"houseNo": h.HouseNo, "block": h.Block},
	})
	return h, nil
}

// UpdateHouse merges p into the house whose id or house number is key.
func (s *Store) UpdateHouse(ctx context.Context, key string, p HousePatch) (House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	houses, err := readCollection[House](ctx, s, KeyHouses)
	if err != nil {
		return House{}, err
	}
	idx := findHouse(houses, key)
	if idx < 0 {
		return House{}, notFound(KindHouse, key)
	}
	h := houses[idx]

	if p.HouseNo != nil {
		no := houseRef(*p.HouseNo)
		if no == "" {
			return House{}, invalid("houseNo", "required")
		}
		if no != h.HouseNo && findHouseNo(houses, no, idx) >= 0 {
			return House{}, &DuplicateKeyError{Kind: KindHouse, Field: "houseNo", Value: no}
		}
		h.HouseNo = no
	}
	if p.Block != nil {
		h.Block = houseRef(*p.Block)
	}
	if p.Floor != nil {
		h.Floor = Floor(strings.TrimSpace(string(*p.Floor)))
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return House{}, invalid("status", "unknown status %q", *p.Status)
		}
		h.Status = *p.Status
	}
	if p.Notes != nil {
		h.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.MembersCount != nil {
		if *p.MembersCount < 0 {
			return House{}, invalid("membersCount", "must not be negative")
		}
		h.MembersCount = *p.MembersCount
	}
	if p.VehiclesCount != nil {
		if *p.VehiclesCount < 0 {
			return House{}, invalid("vehiclesCount", "must not be negative")
		}
		h.VehiclesCount = *p.VehiclesCount
	}
	h.UpdatedAt = s.now()
	houses[idx] = h
	if err := writeCollection(ctx, s, KeyHouses, houses); err != nil {
		return House{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindHouse,
		Action:   ActionUpdate,
		Summary:  "House " + h.HouseNo + " updated",
		EntityID: h.ID,
		Meta:     map[string]any{"changes": p},
	})
	return h, nil
}

// DeleteHouse removes the house whose id or house number is key. Members and
// vehicles that reference it are kept and become dangling.
func (s *Store) DeleteHouse(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	houses, err := readCollection[House](ctx, s, KeyHouses)
	if err != nil {
		return err
	}
	idx := findHouse(houses, key)
	if idx < 0 {
		return notFound(KindHouse, key)
	}
	removed := houses[idx]
	houses = append(houses[:idx], houses[idx+1:]...)
	if err := writeCollection(ctx, s, KeyHouses, houses); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindHouse,
		Action:   ActionDelete,
		Summary:  "House " + removed.HouseNo + " deleted",
		EntityID: removed.ID,
		Meta:     map[string]any{"houseNo": removed.HouseNo},
	})
	return nil
}

func findHouse(houses []House, key string) int {
	no := houseRef(key)
	for i, h := range houses {
		if h.ID == key || h.HouseNo == no {
			return i
		}
	}
	return -1
}

// findHouseNo finds a house whose number equals no ignoring case, skipping
// index skip.
func findHouseNo(houses []House, no string, skip int) int {
	folded := foldKey(no)
	for i, h := range houses {
		if i != skip && foldKey(h.HouseNo) == folded {
			return i
		}
	}
	return -1
}
