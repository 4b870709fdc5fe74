package society

import (
	"context"
	"strings"
)

// =============================================================================
// VEHICLES
// =============================================================================

func (s *Store) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readCollection[Vehicle](ctx, s, KeyVehicles)
}

// CreateVehicle registers a vehicle. Numbers are unique ignoring case on both
// create and update.
func (s *Store) CreateVehicle(ctx context.Context, in VehicleInput) (Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := Vehicle{
		Number:           strings.TrimSpace(in.Number),
		Type:             in.Type,
		BrandModel:       strings.TrimSpace(in.BrandModel),
		Color:            strings.TrimSpace(in.Color),
		OwnerName:        strings.TrimSpace(in.OwnerName),
		House:            houseRef(in.House),
		RegistrationDate: in.RegistrationDate,
		Status:           in.Status,
	}
	if v.Type == "" {
		v.Type = TwoWheeler
	}
	if v.RegistrationDate == "" {
		v.RegistrationDate = s.today()
	}
	if v.Status == "" {
		v.Status = StatusActive
	}
	if err := validateVehicle(v); err != nil {
		return Vehicle{}, err
	}

	vehicles, err := readCollection[Vehicle](ctx, s, KeyVehicles)
	if err != nil {
		return Vehicle{}, err
	}
	if findVehicleNumber(vehicles, v.Number, -1) >= 0 {
		return Vehicle{}, &DuplicateKeyError{Kind: KindVehicle, Field: "number", Value: v.Number}
	}
	now := s.now()
	v.ID = s.newID()
	v.CreatedAt = now
	v.UpdatedAt = now
	vehicles = append(vehicles, v)

	if err := s.saveVehicles(ctx, vehicles, v.House); err != nil {
		return Vehicle{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindVehicle,
		Action:   ActionCreate,
		Summary:  "Vehicle " + v.Number + " registered (" + string(v.Type) + ")",
		EntityID: v.ID,
		Meta:     map[string]any{"house": v.House, "type": v.Type},
	})
	return v, nil
}

// UpdateVehicle merges p into the vehicle. Moving it to another house
// recounts both the old and the new house.
func (s *Store) UpdateVehicle(ctx context.Context, id string, p VehiclePatch) (Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vehicles, err := readCollection[Vehicle](ctx, s, KeyVehicles)
	if err != nil {
		return Vehicle{}, err
	}
	idx := findVehicle(vehicles, id)
	if idx < 0 {
		return Vehicle{}, notFound(KindVehicle, id)
	}
	prev := vehicles[idx]
	v := prev

	if p.Number != nil {
		number := strings.TrimSpace(*p.Number)
		if number != prev.Number && findVehicleNumber(vehicles, number, idx) >= 0 {
			return Vehicle{}, &DuplicateKeyError{Kind: KindVehicle, Field: "number", Value: number}
		}
		v.Number = number
	}
	if p.Type != nil {
		v.Type = *p.Type
	}
	if p.BrandModel != nil {
		v.BrandModel = strings.TrimSpace(*p.BrandModel)
	}
	if p.Color != nil {
		v.Color = strings.TrimSpace(*p.Color)
	}
	if p.OwnerName != nil {
		v.OwnerName = strings.TrimSpace(*p.OwnerName)
	}
	if p.House != nil {
		v.House = houseRef(*p.House)
	}
	if p.RegistrationDate != nil {
		v.RegistrationDate = *p.RegistrationDate
	}
	if p.Status != nil {
		v.Status = *p.Status
	}
	if v.Status == "" {
		v.Status = StatusActive
	}
	if err := validateVehicle(v); err != nil {
		return Vehicle{}, err
	}
	v.UpdatedAt = s.now()
	vehicles[idx] = v

	if err := s.saveVehicles(ctx, vehicles, prev.House, v.House); err != nil {
		return Vehicle{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindVehicle,
		Action:   ActionUpdate,
		Summary:  "Vehicle " + v.Number + " updated",
		EntityID: v.ID,
		Meta:     map[string]any{"changes": p},
	})
	return v, nil
}

func (s *Store) DeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vehicles, err := readCollection[Vehicle](ctx, s, KeyVehicles)
	if err != nil {
		return err
	}
	idx := findVehicle(vehicles, id)
	if idx < 0 {
		return notFound(KindVehicle, id)
	}
	removed := vehicles[idx]
	vehicles = append(vehicles[:idx], vehicles[idx+1:]...)

	if err := s.saveVehicles(ctx, vehicles, removed.House); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindVehicle,
		Action:   ActionDelete,
		Summary:  "Vehicle " + removed.Number + " deleted",
		EntityID: removed.ID,
		Meta:     map[string]any{"house": removed.House},
	})
	return nil
}

func (s *Store) saveVehicles(ctx context.Context, vehicles []Vehicle, houseNos ...string) error {
	houses, err := readCollection[House](ctx, s, KeyHouses)
	if err != nil {
		return err
	}
	members, err := readCollection[Member](ctx, s, KeyMembers)
	if err != nil {
		return err
	}
	b := newBatch()
	addTo(b, KeyVehicles, vehicles)
	if houses, changed := recountHouses(houses, members, vehicles, recountVehicles, s.now(), houseNos...); changed {
		addTo(b, KeyHouses, houses)
	}
	return s.commit(ctx, b)
}

func findVehicle(vehicles []Vehicle, id string) int {
	for i, v := range vehicles {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func findVehicleNumber(vehicles []Vehicle, number string, skip int) int {
	folded := foldKey(number)
	for i, v := range vehicles {
		if i != skip && foldKey(v.Number) == folded {
			return i
		}
	}
	return -1
}

func validateVehicle(v Vehicle) error {
	if v.Number == "" {
		return invalid("number", "required")
	}
	if v.House == "" {
		return invalid("house", "required")
	}
	if !v.Type.Valid() {
		return invalid("type", "unknown vehicle type %q", v.Type)
	}
	if !v.RegistrationDate.IsZero() && !v.RegistrationDate.Valid() {
		return invalid("registrationDate", "want YYYY-MM-DD, got %q", v.RegistrationDate)
	}
	if !v.Status.Valid() {
		return invalid("status", "unknown status %q", v.Status)
	}
	return nil
}
