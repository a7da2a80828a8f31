package operators

import (
	"context"
	"errors"
)

// MockOperatorRepository is an in memory operator repository for testing
type MockOperatorRepository struct {
	Operators []*Operator
}

func (r *MockOperatorRepository) Add(ctx context.Context, operator *Operator) error {
	r.Operators = append(r.Operators, operator)
	return nil
}

func (r *MockOperatorRepository) FindAll(ctx context.Context) ([]*Operator, error) {
	return r.Operators, nil
}

func (r *MockOperatorRepository) FindByID(ctx context.Context, id string) (*Operator, error) {
	for _, operator := range r.Operators {
		if operator.ID.Hex() == id {
			return operator, nil
		}
	}

	return nil, errors.New("operator not found")
}

func (r *MockOperatorRepository) FindByEmail(ctx context.Context, email string) (*Operator, error) {
	for _, operator := range r.Operators {
		if operator.Email == email {
			return operator, nil
		}
	}

	return nil, errors.New("operator not found")
}

func (r *MockOperatorRepository) FindByGoogleStateToken(ctx context.Context, stateToken string) (*Operator, error) {
	for _, operator := range r.Operators {
		if operator.GoogleCalendarConnection.StateToken == stateToken {
			return operator, nil
		}
	}

	return nil, errors.New("operator not found")
}

func (r *MockOperatorRepository) Update(ctx context.Context, operator *Operator) error {
	for i, present := range r.Operators {
		if present.ID == operator.ID {
			r.Operators[i] = operator
			return nil
		}
	}

	return errors.New("operator not found")
}

func (r *MockOperatorRepository) Remove(ctx context.Context, id string) error {
	for i, operator := range r.Operators {
		if operator.ID.Hex() == id {
			r.Operators = append(r.Operators[:i], r.Operators[i+1:]...)
			return nil
		}
	}

	return errors.New("operator not found")
}
