package society

import (
	"context"
	"strings"
)

// =============================================================================
// MEMBERS
// =============================================================================

func (s *Store) ListMembers(ctx context.Context) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readCollection[Member](ctx, s, KeyMembers)
}

// CreateMember adds a resident. The house reference is not required to
// exist; when it does, that house is recounted in the same write.
func (s *Store) CreateMember(ctx context.Context, in MemberInput) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Member{
		Name:         strings.TrimSpace(in.Name),
		House:        houseRef(in.House),
		Role:         in.Role,
		Relationship: in.Relationship,
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Status:       in.Status,
	}
	if m.Role == "" {
		m.Role = RoleOwner
	}
	if m.Relationship == "" {
		m.Relationship = defaultRelationship(m.Role)
	}
	if m.Status == "" {
		m.Status = StatusActive
	}
	if err := validateMember(m); err != nil {
		return Member{}, err
	}

	members, err := readCollection[Member](ctx, s, KeyMembers)
	if err != nil {
		return Member{}, err
	}
	now := s.now()
	m.ID = s.newID()
	m.CreatedAt = now
	m.UpdatedAt = now
	members = append(members, m)

	if err := s.saveMembers(ctx, members, m.House); err != nil {
		return Member{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindMember,
		Action:   ActionCreate,
		Summary:  "Member " + m.Name + " added to " + m.House,
		EntityID: m.ID,
		Meta:     map[string]any{"house": m.House, "role": m.Role},
	})
	return m, nil
}

func (s *Store) UpdateMember(ctx context.Context, id string, p MemberPatch) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := readCollection[Member](ctx, s, KeyMembers)
	if err != nil {
		return Member{}, err
	}
	idx := -1
	for i, m := range members {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Member{}, notFound(KindMember, id)
	}
	prev := members[idx]
	m := prev

	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.House != nil {
		m.House = houseRef(*p.House)
	}
	if p.Role != nil {
		m.Role = *p.Role
	}
	if p.Relationship != nil {
		m.Relationship = *p.Relationship
	} else if m.Role != prev.Role {
		m.Relationship = ""
	}
	if m.Relationship == "" {
		m.Relationship = defaultRelationship(m.Role)
	}
	if p.Phone != nil {
		m.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Email != nil {
		m.Email = strings.TrimSpace(*p.Email)
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if err := validateMember(m); err != nil {
		return Member{}, err
	}
	m.UpdatedAt = s.now()
	members[idx] = m

	if err := s.saveMembers(ctx, members, prev.House, m.House); err != nil {
		return Member{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindMember,
		Action:   ActionUpdate,
		Summary:  "Member " + m.Name + " updated",
		EntityID: m.ID,
		Meta:     map[string]any{"changes": p},
	})
	return m, nil
}

func (s *Store) DeleteMember(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := readCollection[Member](ctx, s, KeyMembers)
	if err != nil {
		return err
	}
	idx := -1
	for i, m := range members {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound(KindMember, id)
	}
	removed := members[idx]
	members = append(members[:idx], members[idx+1:]...)

	if err := s.saveMembers(ctx, members, removed.House); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindMember,
		Action:   ActionDelete,
		Summary:  "Member " + removed.Name + " removed",
		EntityID: removed.ID,
		Meta:     map[string]any{"house": removed.House},
	})
	return nil
}

// saveMembers writes members and, in the same batch, the recounted houses
// named by houseNos.
func (s *Store) saveMembers(ctx context.Context, members []Member, houseNos ...string) error {
	houses, err := readCollection[House](ctx, s, KeyHouses)
	if err != nil {
		return err
	}
	vehicles, err := readCollection[Vehicle](ctx, s, KeyVehicles)
	if err != nil {
		return err
	}
	b := newBatch()
	addTo(b, KeyMembers, members)
	if houses, changed := recountHouses(houses, members, vehicles, recountMembers, s.now(), houseNos...); changed {
		addTo(b, KeyHouses, houses)
	}
	return s.commit(ctx, b)
}

func defaultRelationship(role MemberRole) Relationship {
	if role == RoleOwner {
		return RelOwner
	}
	return RelOther
}

func validateMember(m Member) error {
	if m.Name == "" {
		return invalid("name", "required")
	}
	if m.House == "" {
		return invalid("house", "required")
	}
	if !m.Role.Valid() {
		return invalid("role", "unknown role %q", m.Role)
	}
	if !m.Relationship.Valid() {
		return invalid("relationship", "unknown relationship %q", m.Relationship)
	}
	if !m.Status.Valid() {
		return invalid("status", "unknown status %q", m.Status)
	}
	return nil
}
