package db

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestUser(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)

	// test not found user
	user, err := testDB.User(100)
	c.Assert(user, qt.IsNil)
	c.Assert(err, qt.Equals, ErrNotFound)

	// create a new user with invalid email
	_, err = testDB.SetUser(&User{
		Email:     "invalid-email",
		Password:  testDBUserPass,
		FirstName: testDBFirstName,
		LastName:  testDBLastName,
	})
	c.Assert(err, qt.Equals, ErrInvalidData)

	// create a new user with valid email
	userID, err := testDB.SetUser(&User{
		Email:     testDBUserEmail,
		Password:  testDBUserPass,
		FirstName: testDBFirstName,
		LastName:  testDBLastName,
	})
	c.Assert(err, qt.IsNil)

	// test found user
	user, err = testDB.User(userID)
	c.Assert(err, qt.IsNil)
	c.Assert(user, qt.Not(qt.IsNil))
	c.Assert(user.Email, qt.Equals, testDBUserEmail)
	c.Assert(user.FirstName, qt.Equals, testDBFirstName)
	c.Assert(user.LastName, qt.Equals, testDBLastName)
	c.Assert(user.Verified, qt.IsFalse)

	// registering the same email again must fail
	_, err = testDB.SetUser(&User{
		Email:     testDBUserEmail,
		Password:  testDBUserPass,
		FirstName: testDBFirstName,
		LastName:  testDBLastName,
	})
	c.Assert(err, qt.Equals, ErrAlreadyExists)
}

func TestUserByEmail(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)

	// test not found user
	user, err := testDB.UserByEmail(testDBUserEmail)
	c.Assert(user, qt.IsNil)
	c.Assert(err, qt.Equals, ErrNotFound)

	// create a new user
	userID, err := testDB.SetUser(&User{
		Email:     testDBUserEmail,
		Password:  testDBUserPass,
		FirstName: testDBFirstName,
		LastName:  testDBLastName,
	})
	c.Assert(err, qt.IsNil)

	// test found user by email
	user, err = testDB.UserByEmail(testDBUserEmail)
	c.Assert(err, qt.IsNil)
	c.Assert(user.ID, qt.Equals, userID)
	c.Assert(user.Email, qt.Equals, testDBUserEmail)
}

func TestUpdateUser(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)

	userID, err := testDB.SetUser(&User{
		Email:     testDBUserEmail,
		Password:  testDBUserPass,
		FirstName: testDBFirstName,
		LastName:  testDBLastName,
	})
	c.Assert(err, qt.IsNil)

	// update the user first name only, the rest must survive
	_, err = testDB.SetUser(&User{
		ID:        userID,
		FirstName: "Updated",
	})
	c.Assert(err, qt.IsNil)

	user, err := testDB.User(userID)
	c.Assert(err, qt.IsNil)
	c.Assert(user.FirstName, qt.Equals, "Updated")
	c.Assert(user.LastName, qt.Equals, testDBLastName)
	c.Assert(user.Email, qt.Equals, testDBUserEmail)
}

func TestDelUser(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)

	userID, err := testDB.SetUser(&User{
		Email:     testDBUserEmail,
		Password:  testDBUserPass,
		FirstName: testDBFirstName,
		LastName:  testDBLastName,
	})
	c.Assert(err, qt.IsNil)

	user, err := testDB.User(userID)
	c.Assert(err, qt.IsNil)

	c.Assert(testDB.DelUser(user), qt.IsNil)

	_, err = testDB.User(userID)
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestVerifyUserAccount(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)

	userID, err := testDB.SetUser(&User{
		Email:     testDBUserEmail,
		Password:  testDBUserPass,
		FirstName: testDBFirstName,
		LastName:  testDBLastName,
	})
	c.Assert(err, qt.IsNil)

	user, err := testDB.User(userID)
	c.Assert(err, qt.IsNil)
	c.Assert(user.Verified, qt.IsFalse)

	// store a verification code for the user
	expires := time.Now().Add(time.Minute)
	c.Assert(testDB.SetVerificationCode(user, "hashedcode", CodeTypeVerifyAccount, expires), qt.IsNil)

	// the code must resolve back to the user
	codeUser, err := testDB.UserByVerificationCode("hashedcode", CodeTypeVerifyAccount)
	c.Assert(err, qt.IsNil)
	c.Assert(codeUser.ID, qt.Equals, userID)

	// verify the account, the code must be consumed
	c.Assert(testDB.VerifyUserAccount(user), qt.IsNil)

	user, err = testDB.User(userID)
	c.Assert(err, qt.IsNil)
	c.Assert(user.Verified, qt.IsTrue)

	_, err = testDB.UserByVerificationCode("hashedcode", CodeTypeVerifyAccount)
	c.Assert(err, qt.Equals, ErrNotFound)
}
