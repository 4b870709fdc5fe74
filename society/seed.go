package society

import "context"

// SeedDemo writes a small demo estate: three houses, three members and two
// vehicles. Each collection is only written when it is absent or empty, so
// seeding never touches real data. It runs only when asked.
func (s *Store) SeedDemo(ctx context.Context) (ImportCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readAll(ctx)
	if err != nil {
		return ImportCounts{}, err
	}
	now := s.now()
	var counts ImportCounts
	b := newBatch()

	if len(current.Houses) == 0 {
		houses := []House{
			{HouseNo: "A-101", Block: "A", Floor: FloorOf(1), Status: HouseOccupied, Notes: "Corner flat", MembersCount: 3, VehiclesCount: 1},
			{HouseNo: "A-102", Block: "A", Floor: FloorOf(1), Status: HouseVacant},
			{HouseNo: "B-201", Block: "B", Floor: FloorOf(2), Status: HouseOccupied, MembersCount: 2, VehiclesCount: 2},
		}
		for i := range houses {
			houses[i].ID = s.newID()
			houses[i].CreatedAt = now
			houses[i].UpdatedAt = now
		}
		addTo(b, KeyHouses, houses)
		counts.Houses = len(houses)
	}
	if len(current.Members) == 0 {
		members := []Member{
			{Name: "Neha Sharma", House: "A-101", Role: RoleOwner, Relationship: RelOwner, Phone: "9876543210", Email: "neha@example.com"},
			{Name: "Rahul Sharma", House: "A-101", Role: RoleFamilyMember, Relationship: RelOther, Phone: "9876543211"},
			{Name: "Suresh Patel", House: "B-201", Role: RoleTenant, Relationship: RelOther, Phone: "9822001100"},
		}
		for i := range members {
			members[i].ID = s.newID()
			members[i].Status = StatusActive
			members[i].CreatedAt = now
			members[i].UpdatedAt = now
		}
		addTo(b, KeyMembers, members)
		counts.Members = len(members)
	}
	if len(current.Vehicles) == 0 {
		vehicles := []Vehicle{
			{Number: "GJ01AB1234", Type: FourWheeler, OwnerName: "Neha Sharma", House: "A-101"},
			{Number: "GJ01ZZ9999", Type: TwoWheeler, OwnerName: "Suresh Patel", House: "B-201"},
		}
		for i := range vehicles {
			vehicles[i].ID = s.newID()
			vehicles[i].RegistrationDate = DateOf(now)
			vehicles[i].Status = StatusActive
			vehicles[i].CreatedAt = now
			vehicles[i].UpdatedAt = now
		}
		addTo(b, KeyVehicles, vehicles)
		counts.Vehicles = len(vehicles)
	}
	if err := s.commit(ctx, b); err != nil {
		return ImportCounts{}, err
	}
	s.logger.Info("demo data seeded",
		"houses", counts.Houses,
		"members", counts.Members,
		"vehicles", counts.Vehicles)
	return counts, nil
}
