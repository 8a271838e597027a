package casestack

import (
	"context"
	"net/http"
)

// record links a fetched resource to the transport it was retrieved
// through. The zero value means the resource was built locally.
type record struct {
	transport Transport
	caller    *caller
}

func (r record) fetched() bool {
	return r.transport != nil
}

// saveRecordAsync PUTs current and yields the updated representation sent
// back by the API, or nil when the response carried no body.
func saveRecordAsync[T any](ctx context.Context, r record, resource, id string, current *T) *Future[*T] {
	if !r.fetched() {
		return failedFuture[*T](ErrNotFetched)
	}
	req, err := NewRequest(resource, id, http.MethodPut)
	if err != nil {
		return failedFuture[*T](err)
	}
	req.Body = current

	var out T
	ctx, done := r.caller.begin(ctx, req, resource)
	ch := executeAsync(ctx, r.transport, req, &out)
	return newFuture(func() (*T, error) {
		resp := <-ch
		if err := done(resp); err != nil {
			return nil, err
		}
		if !resp.Decoded {
			return nil, nil
		}
		return &out, nil
	})
}

// Save persists the carrier. On success the carrier reflects what the API
// returned; on failure it is left unchanged.
func (c *Carrier) Save(ctx context.Context) error {
	return c.SaveAsync(ctx).Err()
}

// SaveAsync is the asynchronous form of Save. The carrier must not be
// modified until the returned future completes.
func (c *Carrier) SaveAsync(ctx context.Context) *Future[*Carrier] {
	link := c.link
	f := saveRecordAsync(ctx, link, ResourceCarrier, c.CarrierID, c)
	return newFuture(func() (*Carrier, error) {
		updated, err := f.Wait()
		if err != nil {
			return nil, err
		}
		if updated != nil {
			*c = *updated
			c.link = link
		}
		return c, nil
	})
}

// Save persists the customer. On success the customer reflects what the API
// returned; on failure it is left unchanged.
func (c *Customer) Save(ctx context.Context) error {
	return c.SaveAsync(ctx).Err()
}

// SaveAsync is the asynchronous form of Save. The customer must not be
// modified until the returned future completes.
func (c *Customer) SaveAsync(ctx context.Context) *Future[*Customer] {
	link := c.link
	f := saveRecordAsync(ctx, link, ResourceCustomer, c.CustomerID, c)
	return newFuture(func() (*Customer, error) {
		updated, err := f.Wait()
		if err != nil {
			return nil, err
		}
		if updated != nil {
			*c = *updated
			c.link = link
		}
		return c, nil
	})
}

// Save persists the shipment, including status and read-only changes. On
// success the shipment reflects what the API returned; on failure it is
// left unchanged.
func (s *Shipment) Save(ctx context.Context) error {
	return s.SaveAsync(ctx).Err()
}

// SaveAsync is the asynchronous form of Save. The shipment must not be
// modified until the returned future completes.
func (s *Shipment) SaveAsync(ctx context.Context) *Future[*Shipment] {
	link := s.link
	f := saveRecordAsync(ctx, link, ResourceShipment, s.ShipmentID, s)
	return newFuture(func() (*Shipment, error) {
		updated, err := f.Wait()
		if err != nil {
			return nil, err
		}
		if updated != nil {
			*s = *updated
			s.link = link
		}
		return s, nil
	})
}
